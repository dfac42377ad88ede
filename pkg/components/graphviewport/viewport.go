package graphviewport

import (
	"context"

	"github.com/recera/voyager/pkg/graph"
)

// Viewport is an interactive drawing of a layout. It is owned by the
// Coordinator that created it and must not be used after Destroy.
type Viewport interface {
	// SelectNodeByID highlights a type; "" clears the selection.
	SelectNodeByID(id string)
	// SelectEdgeByID highlights a field edge; "" clears the selection.
	SelectEdgeByID(id string)
	FocusElement(id string)
	Resize()
	// Destroy releases the container. It is called exactly once.
	Destroy()
}

// Navigator is implemented by Viewports that move the selection by
// themselves. Moves are reported through the selection callbacks.
type Navigator interface {
	// Step selects the node delta places away in reading order
	Step(delta int)
	// Follow selects the next edge leaving the selected node
	Follow()
}

// Picker is implemented by Viewports that hit-test container positions
type Picker interface {
	Click(x, y float64)
}

// Container is the host drawing surface a Viewport draws into. Its concrete
// type is agreed between the host and its ViewportFactory.
type Container any

// ViewportFactory builds a Viewport for a layout inside container.
// onSelectNode and onSelectEdge report user selections back to the host.
type ViewportFactory func(layout *graph.Layout, container Container, onSelectNode, onSelectEdge func(id string)) (Viewport, error)

// Producer runs render jobs. Calls may overlap; a result may be discarded
// after it is produced, so Produce must not touch shared state.
type Producer interface {
	Produce(ctx context.Context, g *graph.TypeGraph, opts *graph.DisplayOptions) (*graph.Layout, error)
}

// ProducerFunc adapts a function to Producer
type ProducerFunc func(ctx context.Context, g *graph.TypeGraph, opts *graph.DisplayOptions) (*graph.Layout, error)

// Produce calls f
func (f ProducerFunc) Produce(ctx context.Context, g *graph.TypeGraph, opts *graph.DisplayOptions) (*graph.Layout, error) {
	return f(ctx, g, opts)
}

// Dispatcher runs functions on the UI goroutine, in posting order.
// *scheduler.Scheduler implements it.
type Dispatcher interface {
	Post(fn func())
}

// DispatcherFunc adapts a function to Dispatcher
type DispatcherFunc func(fn func())

// Post calls f
func (f DispatcherFunc) Post(fn func()) { f(fn) }
