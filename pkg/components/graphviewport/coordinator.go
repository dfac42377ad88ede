// Package graphviewport shows a type graph in an imperative Viewport. The
// Coordinator decides when a layout job starts, drops results that were
// superseded while running, swaps Viewports and keeps the host's selection
// applied to whichever Viewport is current.
package graphviewport

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/recera/voyager/pkg/graph"
	"github.com/recera/voyager/pkg/reactive"
)

var (
	errNoLayout   = errors.New("producer returned no layout")
	errNoViewport = errors.New("factory returned no viewport")
)

// Selection is the externally owned selection. "" means none.
type Selection struct {
	NodeID string
	EdgeID string
}

// Publication is the Viewport currently on screen and the inputs it was
// rendered from.
type Publication struct {
	Viewport   Viewport
	Graph      *graph.TypeGraph
	Options    *graph.DisplayOptions
	Generation uint64
}

// Config wires a Coordinator to its collaborators
type Config struct {
	// Context is handed to every render job. The Coordinator never cancels it.
	Context    context.Context
	Producer   Producer
	Factory    ViewportFactory
	Container  Container
	Dispatcher Dispatcher
	// Scheduler re-renders fibers subscribed to Published. Optional.
	Scheduler reactive.Scheduler
	// OnFault receives render failures on the dispatcher goroutine.
	// When nil the failure is raised as a panic there instead.
	OnFault func(err *RenderError)
}

// Coordinator owns the render lifecycle of one viewport.
//
// Every method must be called on the Dispatcher's goroutine. Render jobs run
// on their own goroutines and report back through Dispatcher.Post.
type Coordinator struct {
	ctx        context.Context
	producer   Producer
	factory    ViewportFactory
	container  Container
	dispatcher Dispatcher
	onFault    func(err *RenderError)

	// in-flight request
	graph      *graph.TypeGraph
	opts       *graph.DisplayOptions
	generation uint64

	// latest inputs worth rendering, kept across failures
	latestGraph *graph.TypeGraph
	latestOpts  *graph.DisplayOptions

	published *reactive.State[*Publication]
	selection Selection

	onSelectNode func(id string)
	onSelectEdge func(id string)
}

// NewCoordinator creates a Coordinator with nothing published
func NewCoordinator(cfg Config) *Coordinator {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Coordinator{
		ctx:        ctx,
		producer:   cfg.Producer,
		factory:    cfg.Factory,
		container:  cfg.Container,
		dispatcher: cfg.Dispatcher,
		onFault:    cfg.OnFault,
		published:  reactive.NewState[*Publication](nil, cfg.Scheduler),
	}
}

// Published is the state holding the current Publication, nil before the
// first successful render.
func (c *Coordinator) Published() *reactive.State[*Publication] {
	return c.published
}

// SetSelectionHandlers sets where Viewport selections are reported.
// Viewports always call the handlers set most recently.
func (c *Coordinator) SetSelectionHandlers(onSelectNode, onSelectEdge func(id string)) {
	c.onSelectNode = onSelectNode
	c.onSelectEdge = onSelectEdge
}

// Selection returns the selection last reported by the host
func (c *Coordinator) Selection() Selection {
	return c.selection
}

// Ready reports whether a Viewport is published for the latest inputs.
func (c *Coordinator) Ready() bool {
	p := c.published.Get()
	return p != nil && p.Graph == c.latestGraph && p.Options == c.latestOpts
}

// Pending reports whether a render job is in flight
func (c *Coordinator) Pending() bool {
	p := c.published.Get()
	inFlight := c.graph != nil && c.opts != nil
	return inFlight && (p == nil || p.Generation != c.generation)
}

// OnInputsChanged starts a render job for (g, opts) unless one for the same
// pair is already running or done. Nil inputs are ignored and leave any
// published Viewport in place.
func (c *Coordinator) OnInputsChanged(g *graph.TypeGraph, opts *graph.DisplayOptions) {
	if g == nil || opts == nil {
		return
	}
	c.latestGraph, c.latestOpts = g, opts

	if g == c.graph && opts == c.opts {
		return
	}

	c.graph, c.opts = g, opts
	c.generation++
	gen := c.generation
	log().Debug("starting render job", "generation", gen, "nodes", len(g.Nodes))

	go c.run(gen, g, opts)
}

// run executes a render job off the UI goroutine and posts the outcome back
func (c *Coordinator) run(gen uint64, g *graph.TypeGraph, opts *graph.DisplayOptions) {
	layout, err := c.produce(g, opts)
	c.dispatcher.Post(func() {
		c.complete(gen, g, opts, layout, err)
	})
}

func (c *Coordinator) produce(g *graph.TypeGraph, opts *graph.DisplayOptions) (layout *graph.Layout, err *RenderError) {
	defer func() {
		if r := recover(); r != nil {
			layout, err = nil, toRenderError("render", r)
		}
	}()

	l, perr := c.producer.Produce(c.ctx, g, opts)
	if perr != nil {
		return nil, toRenderError("render", perr)
	}
	if l == nil {
		return nil, toRenderError("render", errNoLayout)
	}
	return l, nil
}

func (c *Coordinator) complete(gen uint64, g *graph.TypeGraph, opts *graph.DisplayOptions, layout *graph.Layout, err *RenderError) {
	if gen != c.generation {
		log().Debug("dropping stale render result", "generation", gen, "current", c.generation)
		return
	}

	if err != nil {
		c.clearInFlight()
		c.fail(err)
		return
	}
	c.publish(gen, g, opts, layout)
}

// publish replaces the published Viewport. The previous one is destroyed
// before the new one is built so only one ever holds the container.
func (c *Coordinator) publish(gen uint64, g *graph.TypeGraph, opts *graph.DisplayOptions, layout *graph.Layout) {
	c.destroyPublished()

	vp, err := c.build(layout)
	if err != nil {
		c.clearInFlight()
		c.fail(err)
		return
	}

	c.published.Set(&Publication{Viewport: vp, Graph: g, Options: opts, Generation: gen})
	log().Debug("published viewport", "generation", gen)

	// A new Viewport starts with nothing selected.
	vp.SelectNodeByID(c.selection.NodeID)
	vp.SelectEdgeByID(c.selection.EdgeID)
}

// build runs the factory. Errors and panics come back as *RenderError.
func (c *Coordinator) build(layout *graph.Layout) (vp Viewport, err *RenderError) {
	defer func() {
		if r := recover(); r != nil {
			vp, err = nil, toRenderError("viewport", r)
		}
	}()

	v, ferr := c.factory(layout, c.container, c.selectNode, c.selectEdge)
	if ferr != nil {
		return nil, toRenderError("viewport", ferr)
	}
	if v == nil {
		return nil, toRenderError("viewport", errNoViewport)
	}
	return v, nil
}

func (c *Coordinator) fail(err *RenderError) {
	log().Error("render failed", "err", err)
	if c.onFault == nil {
		panic(err)
	}
	c.onFault(err)
}

func (c *Coordinator) clearInFlight() {
	c.graph, c.opts = nil, nil
}

// OnSelectionChanged records the host's selection and forwards the ids that
// changed to the published Viewport. Without a Viewport the new selection is
// applied when one is published.
func (c *Coordinator) OnSelectionChanged(prevNodeID, nodeID, prevEdgeID, edgeID string) {
	c.selection = Selection{NodeID: nodeID, EdgeID: edgeID}

	p := c.published.Get()
	if p == nil {
		return
	}
	if prevNodeID != nodeID {
		p.Viewport.SelectNodeByID(nodeID)
	}
	if prevEdgeID != edgeID {
		p.Viewport.SelectEdgeByID(edgeID)
	}
}

// Teardown voids any running job and destroys the published Viewport.
// It is safe to call more than once.
func (c *Coordinator) Teardown() {
	c.clearInFlight()
	c.generation++
	c.latestGraph, c.latestOpts = nil, nil
	c.destroyPublished()
}

func (c *Coordinator) destroyPublished() {
	if c.published.Get() == nil {
		return
	}
	if p := c.published.Swap(nil); p != nil {
		p.Viewport.Destroy()
	}
}

// Resize forwards to the published Viewport
func (c *Coordinator) Resize() {
	if p := c.published.Get(); p != nil {
		p.Viewport.Resize()
	}
}

// FocusOnElement forwards to the published Viewport
func (c *Coordinator) FocusOnElement(id string) {
	if p := c.published.Get(); p != nil {
		p.Viewport.FocusElement(id)
	}
}

// Step forwards to a published Navigator
func (c *Coordinator) Step(delta int) {
	if n, ok := c.viewport().(Navigator); ok {
		n.Step(delta)
	}
}

// Follow forwards to a published Navigator
func (c *Coordinator) Follow() {
	if n, ok := c.viewport().(Navigator); ok {
		n.Follow()
	}
}

// Click forwards a container position to a published Picker
func (c *Coordinator) Click(x, y float64) {
	if p, ok := c.viewport().(Picker); ok {
		p.Click(x, y)
	}
}

func (c *Coordinator) viewport() Viewport {
	if p := c.published.Get(); p != nil {
		return p.Viewport
	}
	return nil
}

func (c *Coordinator) selectNode(id string) {
	if c.onSelectNode != nil {
		c.onSelectNode(id)
	}
}

func (c *Coordinator) selectEdge(id string) {
	if c.onSelectEdge != nil {
		c.onSelectEdge(id)
	}
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
	logger.Store(l.With("component", "graphviewport"))
}

func log() *slog.Logger {
	return logger.Load()
}
