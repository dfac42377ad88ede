package raster

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/gogpu/gg"

	"github.com/recera/voyager/pkg/components/graphviewport"
	"github.com/recera/voyager/pkg/graph"
)

// Theme holds the colors used to draw a layout, as hex strings
type Theme struct {
	Background   string
	Box          string
	Border       string
	Link         string
	Selected     string
	SelectedLink string
}

// DefaultTheme mirrors the voyager palette
func DefaultTheme() Theme {
	return Theme{
		Background:   "#ffffff",
		Box:          "#f6f8fa",
		Border:       "#6b7280",
		Link:         "#9ca3af",
		Selected:     "#fde68a",
		SelectedLink: "#f59e0b",
	}
}

// Viewport draws one layout on a Surface and tracks selection and focus.
type Viewport struct {
	layout  *graph.Layout
	surface *Surface
	theme   Theme

	node, edge string
	scale      float64
	offX, offY float64

	onSelectNode func(id string)
	onSelectEdge func(id string)
	destroyed    bool
}

// New takes ownership of surface and draws layout on it
func New(layout *graph.Layout, surface *Surface, theme Theme, onSelectNode, onSelectEdge func(id string)) (*Viewport, error) {
	if layout == nil {
		return nil, errors.New("raster: nil layout")
	}
	v := &Viewport{
		layout:       layout,
		surface:      surface,
		theme:        theme,
		onSelectNode: onSelectNode,
		onSelectEdge: onSelectEdge,
	}
	if err := surface.claim(v); err != nil {
		return nil, err
	}
	v.fit()
	if err := v.Redraw(); err != nil {
		surface.release(v)
		return nil, err
	}
	return v, nil
}

var _ graphviewport.Picker = (*Viewport)(nil)

// Factory returns a ViewportFactory for *Surface containers
func Factory(theme Theme) graphviewport.ViewportFactory {
	return func(layout *graph.Layout, container graphviewport.Container, onSelectNode, onSelectEdge func(string)) (graphviewport.Viewport, error) {
		surface, ok := container.(*Surface)
		if !ok {
			return nil, fmt.Errorf("raster: container is %T, want *raster.Surface", container)
		}
		return New(layout, surface, theme, onSelectNode, onSelectEdge)
	}
}

// SelectNodeByID highlights a box; "" clears it
func (v *Viewport) SelectNodeByID(id string) {
	if id != "" && !v.layout.Has(id) {
		log().Debug("select unknown node", "id", id)
		id = ""
	}
	v.node = id
	v.redraw()
}

// SelectEdgeByID highlights a link; "" clears it
func (v *Viewport) SelectEdgeByID(id string) {
	if id != "" && !v.layout.Has(id) {
		log().Debug("select unknown edge", "id", id)
		id = ""
	}
	v.edge = id
	v.redraw()
}

// FocusElement centers the surface on a box or link at full scale
func (v *Viewport) FocusElement(id string) {
	var cx, cy float64
	if b, ok := v.layout.Box(id); ok {
		cx, cy = b.Center()
	} else if l, ok := v.layout.Link(id); ok {
		cx, cy = (l.X1+l.X2)/2, (l.Y1+l.Y2)/2
	} else {
		return
	}

	w, h := v.surface.Size()
	v.scale = 1
	v.offX = float64(w)/2 - cx
	v.offY = float64(h)/2 - cy
	v.redraw()
}

// Resize refits the layout to the surface size
func (v *Viewport) Resize() {
	v.fit()
	v.redraw()
}

// Destroy clears the surface and gives it up. Later calls are no-ops.
func (v *Viewport) Destroy() {
	if v.destroyed {
		return
	}
	v.destroyed = true
	v.surface.release(v)
}

// Selection returns the highlighted node and edge ids
func (v *Viewport) Selection() (node, edge string) {
	return v.node, v.edge
}

// Click reports the element under surface pixel (x, y) through the
// selection callbacks. A row that starts an edge selects the edge.
// Empty space clears the node selection.
func (v *Viewport) Click(x, y float64) {
	if v.destroyed {
		return
	}
	lx, ly := (x-v.offX)/v.scale, (y-v.offY)/v.scale

	for _, b := range v.layout.Boxes {
		if lx < b.X || lx > b.X+b.W || ly < b.Y || ly > b.Y+b.H {
			continue
		}
		for _, r := range b.Rows {
			if r.EdgeID != "" && ly >= r.Y && ly < r.Y+graph.RowHeight {
				call(v.onSelectEdge, r.EdgeID)
				return
			}
		}
		call(v.onSelectNode, b.ID)
		return
	}
	call(v.onSelectNode, "")
}

// Redraw paints the whole layout
func (v *Viewport) Redraw() error {
	if v.destroyed {
		return nil
	}
	return v.surface.draw(v, v.paint)
}

func (v *Viewport) redraw() {
	if err := v.Redraw(); err != nil {
		log().Warn("redraw failed", "err", err)
	}
}

func (v *Viewport) fit() {
	w, h := v.surface.Size()
	v.scale = 1
	if v.layout.Width > 0 && v.layout.Height > 0 {
		v.scale = math.Min(1, math.Min(float64(w)/v.layout.Width, float64(h)/v.layout.Height))
	}
	v.offX = (float64(w) - v.layout.Width*v.scale) / 2
	v.offY = (float64(h) - v.layout.Height*v.scale) / 2
}

func (v *Viewport) paint(dc *gg.Context) error {
	dc.ClearWithColor(gg.Hex(v.theme.Background))

	dc.Push()
	defer dc.Pop()
	dc.Translate(v.offX, v.offY)
	dc.Scale(v.scale, v.scale)

	for _, l := range v.layout.Links {
		dc.SetHexColor(v.theme.Link)
		dc.SetLineWidth(1)
		if l.ID == v.edge {
			dc.SetHexColor(v.theme.SelectedLink)
			dc.SetLineWidth(3)
		}
		dc.DrawLine(l.X1, l.Y1, l.X2, l.Y2)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}

	for _, b := range v.layout.Boxes {
		fill := v.theme.Box
		if b.ID == v.node {
			fill = v.theme.Selected
		}
		dc.SetHexColor(fill)
		dc.DrawRectangle(b.X, b.Y, b.W, b.H)
		if err := dc.Fill(); err != nil {
			return err
		}

		dc.SetHexColor(v.theme.Border)
		dc.SetLineWidth(1)
		dc.DrawRectangle(b.X, b.Y, b.W, b.H)
		for _, r := range b.Rows {
			dc.DrawLine(b.X, r.Y, b.X+b.W, r.Y)
		}
		if err := dc.Stroke(); err != nil {
			return err
		}

		// Edge anchors on the rows that start a link
		for _, r := range b.Rows {
			if r.EdgeID == "" {
				continue
			}
			dc.DrawCircle(b.X+b.W, r.Y+graph.RowHeight/2, 2)
		}
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	return nil
}

func call(fn func(string), id string) {
	if fn != nil {
		fn(id)
	}
}

var logger = slog.New(slog.DiscardHandler)

// SetLogger sets the logger used by this package. Nil silences it.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger = l.With("component", "raster")
}

func log() *slog.Logger { return logger }
