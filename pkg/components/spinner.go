package components

import (
	"strings"

	"github.com/recera/voyager/pkg/vdom"
)

// SpinnerProps defines the properties for LoadingAnimation
type SpinnerProps struct {
	Size  string // "small", "medium", "large"
	Color string // CSS color value
	Text  string // optional caption
	Class string
}

// LoadingAnimation renders the indicator shown while a graph is being laid out
func LoadingAnimation(props SpinnerProps) *vdom.VNode {
	if props.Size == "" {
		props.Size = "medium"
	}
	if props.Color == "" {
		props.Color = "#3b82f6"
	}

	var side string
	switch props.Size {
	case "small":
		side = "16"
	case "large":
		side = "48"
	default:
		side = "24"
	}

	circle := func(extra vdom.Props) *vdom.VNode {
		p := vdom.Props{
			"cx":           "12",
			"cy":           "12",
			"r":            "10",
			"stroke":       props.Color,
			"stroke-width": "2",
		}
		for k, v := range extra {
			p[k] = v
		}
		return vdom.NewElement("circle", p)
	}

	spinner := vdom.NewElement("svg", vdom.Props{
		"class":   joinClasses("spinner", "spinner-"+props.Size, props.Class),
		"width":   side,
		"height":  side,
		"viewBox": "0 0 24 24",
		"fill":    "none",
	},
		circle(vdom.Props{"stroke-opacity": "0.25"}),
		circle(vdom.Props{
			"class":             "spinner-track",
			"stroke-linecap":    "round",
			"stroke-dasharray":  "32",
			"stroke-dashoffset": "32",
		}),
	)

	var caption *vdom.VNode
	if props.Text != "" {
		caption = vdom.NewElement("span", vdom.Props{"class": "spinner-text"}, vdom.NewText(props.Text))
	}
	return vdom.NewElement("div", vdom.Props{"class": "loading-box", "role": "status"}, spinner, caption)
}

func joinClasses(classes ...string) string {
	out := classes[:0:0]
	for _, c := range classes {
		if c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, " ")
}
