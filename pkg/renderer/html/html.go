package html

import (
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/recera/voyager/pkg/vdom"
)

// voidElements are HTML elements that cannot have children
var voidElements = map[string]bool{
	"br":    true,
	"hr":    true,
	"img":   true,
	"input": true,
	"link":  true,
	"meta":  true,
}

// Renderer writes VNode trees as HTML
type Renderer struct {
	w   io.Writer
	err error
}

// NewRenderer creates a renderer writing to w
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Render writes node and returns the first write error
func (r *Renderer) Render(node *vdom.VNode) error {
	r.renderNode(node)
	return r.err
}

func (r *Renderer) write(s string) {
	if r.err != nil {
		return
	}
	_, r.err = io.WriteString(r.w, s)
}

func (r *Renderer) renderNode(node *vdom.VNode) {
	if node == nil || r.err != nil {
		return
	}

	switch node.Kind {
	case vdom.KindText:
		r.write(html.EscapeString(node.Text))
	case vdom.KindElement:
		r.renderElement(node)
	case vdom.KindFragment:
		for i := range node.Kids {
			r.renderNode(&node.Kids[i])
		}
	}
}

func (r *Renderer) renderElement(node *vdom.VNode) {
	r.write("<")
	r.write(node.Tag)

	// Sorted so the output is stable between renders
	keys := make([]string, 0, len(node.Props))
	for key := range node.Props {
		if key == "ref" || strings.HasPrefix(key, "on") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := node.Props[key]
		if b, ok := value.(bool); ok {
			if b {
				r.write(" ")
				r.write(key)
			}
			continue
		}
		valueStr := fmt.Sprintf("%v", value)
		if (key == "href" || key == "src") && strings.HasPrefix(strings.ToLower(valueStr), "javascript:") {
			valueStr = "#"
		}
		r.write(" ")
		r.write(key)
		r.write(`="`)
		r.write(html.EscapeString(valueStr))
		r.write(`"`)
	}
	r.write(">")

	if voidElements[node.Tag] {
		return
	}
	for i := range node.Kids {
		r.renderNode(&node.Kids[i])
	}
	r.write("</")
	r.write(node.Tag)
	r.write(">")
}

// RenderToString renders node to an HTML string
func RenderToString(node *vdom.VNode) (string, error) {
	var buf strings.Builder
	if err := NewRenderer(&buf).Render(node); err != nil {
		return "", err
	}
	return buf.String(), nil
}
