package graphviewport

import (
	"context"

	"github.com/recera/voyager/pkg/components"
	"github.com/recera/voyager/pkg/graph"
	"github.com/recera/voyager/pkg/scheduler"
	"github.com/recera/voyager/pkg/vdom"
)

// Props are the declarative inputs of a Component
type Props struct {
	Graph          *graph.TypeGraph
	Options        *graph.DisplayOptions
	SelectedNodeID string
	SelectedEdgeID string

	OnSelectNode func(id string)
	OnSelectEdge func(id string)
}

// Options configure a Component
type Options struct {
	Context    context.Context
	Producer   Producer
	Factory    ViewportFactory
	Container  Container
	Dispatcher Dispatcher

	// ErrorBoundary receives render failures after the component has torn
	// itself down. When nil the failure is re-panicked on the UI goroutine.
	ErrorBoundary func(err error)

	// LoadingText is shown under the spinner while no Viewport is ready
	LoadingText string
}

// Component is the host shell around a Coordinator. Mount, Update, Unmount,
// Render, Resize and FocusNode must be called on the UI goroutine.
type Component struct {
	coord   *Coordinator
	opts    Options
	props   Props
	mounted bool

	sched *scheduler.Scheduler
	fiber *scheduler.Fiber
	fault *RenderError
}

// NewComponent creates an unmounted Component
func NewComponent(opts Options) *Component {
	c := &Component{opts: opts}
	c.coord = NewCoordinator(Config{
		Context:    opts.Context,
		Producer:   opts.Producer,
		Factory:    opts.Factory,
		Container:  opts.Container,
		Dispatcher: opts.Dispatcher,
		OnFault:    c.onFault,
	})
	c.coord.SetSelectionHandlers(c.selectNode, c.selectEdge)
	return c
}

// Coordinator returns the component's lifecycle coordinator
func (c *Component) Coordinator() *Coordinator {
	return c.coord
}

// Attach creates a fiber for the component on s. The fiber re-renders
// whenever a Viewport is published or removed, and acts as the error
// boundary for render failures.
func (c *Component) Attach(s *scheduler.Scheduler) *scheduler.Fiber {
	fiber := s.CreateFiber(c.Render, nil)
	fiber.SetUserData(c)
	fiber.SetErrorHandler(c.boundary)

	published := c.coord.Published()
	published.Bind(s)
	published.Subscribe(fiber)

	c.sched, c.fiber = s, fiber
	return fiber
}

// Mount triggers the first render attempt. An attached fiber follows the
// published state again after an Unmount.
func (c *Component) Mount(props Props) {
	c.props = props
	c.mounted = true
	if c.fiber != nil {
		c.coord.Published().Subscribe(c.fiber)
	}
	c.coord.OnSelectionChanged("", props.SelectedNodeID, "", props.SelectedEdgeID)
	c.coord.OnInputsChanged(props.Graph, props.Options)
}

// Update re-evaluates the inputs and forwards selection changes
func (c *Component) Update(props Props) {
	if !c.mounted {
		c.Mount(props)
		return
	}
	prev := c.props
	c.props = props

	c.coord.OnInputsChanged(props.Graph, props.Options)
	c.coord.OnSelectionChanged(prev.SelectedNodeID, props.SelectedNodeID, prev.SelectedEdgeID, props.SelectedEdgeID)
}

// Unmount tears the coordinator down. Calling it again does nothing.
func (c *Component) Unmount() {
	c.mounted = false
	c.coord.Teardown()
	if c.fiber != nil {
		c.coord.Published().Unsubscribe(c.fiber)
	}
}

// Ready reports whether the Viewport for the current props is on screen
func (c *Component) Ready() bool {
	return c.coord.Ready()
}

// Resize tells the Viewport its container changed size
func (c *Component) Resize() {
	c.coord.Resize()
}

// FocusNode scrolls the Viewport to a node or edge
func (c *Component) FocusNode(id string) {
	c.coord.FocusOnElement(id)
}

// Step moves the selection delta nodes in the Viewport's reading order
func (c *Component) Step(delta int) {
	c.coord.Step(delta)
}

// Follow selects the next edge leaving the selected node
func (c *Component) Follow() {
	c.coord.Follow()
}

// Click selects what is drawn at container position (x, y)
func (c *Component) Click(x, y float64) {
	c.coord.Click(x, y)
}

// Render builds the component tree. A pending render failure is raised from
// here so the fiber's error handler sees it.
func (c *Component) Render() *vdom.VNode {
	if err := c.fault; err != nil {
		c.fault = nil
		panic(err)
	}

	ready := c.Ready()
	var loading *vdom.VNode
	if !ready {
		loading = components.LoadingAnimation(components.SpinnerProps{
			Size: "large",
			Text: c.opts.LoadingText,
		})
	}

	return vdom.NewFragment(
		vdom.NewElement("div", vdom.Props{
			"class":      "viewport",
			"data-ready": ready,
			"ref":        c.opts.Container,
		}),
		loading,
	)
}

func (c *Component) onFault(err *RenderError) {
	if c.fiber != nil {
		c.fault = err
		c.coord.Published().Unsubscribe(c.fiber)
		c.sched.MarkDirty(c.fiber)
		return
	}
	c.escalate(err)
}

// boundary handles a failure raised from Render. The scheduler drops the
// fiber afterwards; Attach again to render after a remount.
func (c *Component) boundary(_ *scheduler.Fiber, err error) bool {
	c.escalate(err)
	c.sched, c.fiber = nil, nil
	return false
}

func (c *Component) escalate(err error) {
	c.Unmount()
	if c.opts.ErrorBoundary == nil {
		panic(err)
	}
	c.opts.ErrorBoundary(err)
}

func (c *Component) selectNode(id string) {
	if c.props.OnSelectNode != nil {
		c.props.OnSelectNode(id)
	}
}

func (c *Component) selectEdge(id string) {
	if c.props.OnSelectEdge != nil {
		c.props.OnSelectEdge(id)
	}
}
