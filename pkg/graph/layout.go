package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/recera/voyager/internal/cache"
)

// ErrEmptyGraph is returned when there is nothing to lay out
var ErrEmptyGraph = errors.New("graph: nothing to lay out")

// Layout geometry in layout units
const (
	charWidth    = 7.0
	RowHeight    = 18.0 // height of a field row
	headerHeight = 24.0
	boxPadding   = 10.0
	columnGap    = 80.0
	rowGap       = 30.0
	minBoxWidth  = 80.0
)

// Row is a field line inside a box
type Row struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	EdgeID string  `json:"edgeId,omitempty"`
	Y      float64 `json:"y"`
}

// Box is a laid out type node
type Box struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Rows  []Row   `json:"rows,omitempty"`
}

// Center returns the middle point of the box
func (b Box) Center() (float64, float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Link is a laid out edge
type Link struct {
	ID   string  `json:"id"`
	From string  `json:"from"`
	To   string  `json:"to"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
}

// Layout is the render artifact: positioned boxes and links, ready to draw.
type Layout struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Boxes  []Box   `json:"boxes"`
	Links  []Link  `json:"links"`

	boxes map[string]int
	links map[string]int
}

// NewLayout assembles a Layout from already positioned boxes and links
func NewLayout(width, height float64, boxes []Box, links []Link) *Layout {
	l := &Layout{Width: width, Height: height, Boxes: boxes, Links: links}
	l.index()
	return l
}

// Box returns the box with the given node id
func (l *Layout) Box(id string) (Box, bool) {
	i, ok := l.boxes[id]
	if !ok {
		return Box{}, false
	}
	return l.Boxes[i], true
}

// Link returns the link with the given edge id
func (l *Layout) Link(id string) (Link, bool) {
	i, ok := l.links[id]
	if !ok {
		return Link{}, false
	}
	return l.Links[i], true
}

// Has reports whether id names a box or a link
func (l *Layout) Has(id string) bool {
	_, box := l.boxes[id]
	_, link := l.links[id]
	return box || link
}

func (l *Layout) index() {
	l.boxes = make(map[string]int, len(l.Boxes))
	for i, b := range l.Boxes {
		l.boxes[b.ID] = i
	}
	l.links = make(map[string]int, len(l.Links))
	for i, k := range l.Links {
		l.links[k.ID] = i
	}
}

// LayoutRenderer turns type graphs into layouts. It is safe for concurrent
// use; every call works on its own data.
type LayoutRenderer struct {
	cache  *cache.Cache
	tracer trace.Tracer
}

// RendererOption configures a LayoutRenderer
type RendererOption func(*LayoutRenderer)

// WithCache memoizes layouts in c
func WithCache(c *cache.Cache) RendererOption {
	return func(r *LayoutRenderer) { r.cache = c }
}

// WithTracer overrides the global tracer
func WithTracer(t trace.Tracer) RendererOption {
	return func(r *LayoutRenderer) { r.tracer = t }
}

// NewLayoutRenderer creates a renderer
func NewLayoutRenderer(opts ...RendererOption) *LayoutRenderer {
	r := &LayoutRenderer{
		tracer: otel.Tracer("github.com/recera/voyager/pkg/graph"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Produce lays out g according to opts
func (r *LayoutRenderer) Produce(ctx context.Context, g *TypeGraph, opts *DisplayOptions) (*Layout, error) {
	if g == nil {
		return nil, ErrEmptyGraph
	}
	if opts == nil {
		opts = DefaultDisplayOptions()
	}
	ctx, span := r.tracer.Start(ctx, "graph.Layout", trace.WithAttributes(
		attribute.Int("graph.nodes", len(g.Nodes)),
		attribute.Int("graph.edges", len(g.Edges)),
	))
	defer span.End()

	layout, err := r.produce(ctx, g, opts, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return layout, nil
}

func (r *LayoutRenderer) produce(ctx context.Context, g *TypeGraph, opts *DisplayOptions, span trace.Span) (*Layout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var key string
	if r.cache != nil {
		key = cache.Key("layout", g.Fingerprint, opts.fingerprint())
		if data, ok := r.cache.Get(key); ok {
			var l Layout
			if err := json.Unmarshal(data, &l); err == nil {
				l.index()
				span.SetAttributes(attribute.Bool("layout.cached", true))
				return &l, nil
			}
			log().Warn("discarding unreadable cached layout", "key", key)
		}
	}

	l, err := Arrange(g, opts)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		data, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("encode layout: %w", err)
		}
		if err := r.cache.Put(key, data); err != nil {
			log().Warn("caching layout failed", "key", key, "err", err)
		}
	}
	return l, nil
}

// Arrange computes a layered layout: one column per distance from the root,
// boxes stacked top to bottom inside a column.
func Arrange(g *TypeGraph, opts *DisplayOptions) (*Layout, error) {
	if opts == nil {
		opts = DefaultDisplayOptions()
	}

	var columns [][]*Node
	for _, n := range g.Nodes {
		if opts.HideRoot && n.ID == g.RootID {
			continue
		}
		for len(columns) <= n.Depth {
			columns = append(columns, nil)
		}
		columns[n.Depth] = append(columns[n.Depth], n)
	}

	l := &Layout{}
	x := 0.0
	for _, col := range columns {
		if len(col) == 0 {
			continue
		}
		y := 0.0
		colWidth := 0.0
		for _, n := range col {
			box := makeBox(n, opts)
			box.X, box.Y = x, y
			for i := range box.Rows {
				box.Rows[i].Y += y
			}
			l.Boxes = append(l.Boxes, box)
			y += box.H + rowGap
			if box.W > colWidth {
				colWidth = box.W
			}
		}
		if y-rowGap > l.Height {
			l.Height = y - rowGap
		}
		x += colWidth + columnGap
	}
	if len(l.Boxes) == 0 {
		return nil, ErrEmptyGraph
	}
	l.Width = x - columnGap
	l.index()

	for _, e := range g.Edges {
		from, okFrom := l.Box(e.From)
		to, okTo := l.Box(e.To)
		if !okFrom || !okTo {
			continue
		}
		x1, y1 := from.X+from.W, from.Y+headerHeight/2
		for _, row := range from.Rows {
			if row.EdgeID == e.ID {
				y1 = row.Y + RowHeight/2
				break
			}
		}
		l.Links = append(l.Links, Link{
			ID:   e.ID,
			From: e.From,
			To:   e.To,
			X1:   x1,
			Y1:   y1,
			X2:   to.X,
			Y2:   to.Y + headerHeight/2,
		})
	}
	l.index()
	return l, nil
}

func makeBox(n *Node, opts *DisplayOptions) Box {
	box := Box{ID: n.ID, Title: n.Name}
	width := float64(len(n.Name)) * charWidth

	y := headerHeight
	for _, f := range n.Fields {
		if f.IsLeaf && !opts.ShowLeafFields {
			continue
		}
		text := f.Name + ": " + f.Signature
		if f.IsRelay {
			text = f.Name + ": [" + f.TypeName + "]"
		}
		box.Rows = append(box.Rows, Row{ID: f.ID, Text: text, EdgeID: f.EdgeID, Y: y})
		if w := float64(len(text)) * charWidth; w > width {
			width = w
		}
		y += RowHeight
	}

	box.W = width + 2*boxPadding
	if box.W < minBoxWidth {
		box.W = minBoxWidth
	}
	box.H = y + boxPadding/2
	return box
}

var logger atomic.Pointer[slog.Logger]

func init() {
	SetLogger(nil)
}

// SetLogger sets the logger used by this package. Nil silences it.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger.Store(l.With("component", "graph"))
}

func log() *slog.Logger {
	return logger.Load()
}
