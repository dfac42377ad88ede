package main

import (
	"context"
	"log/slog"

	"github.com/recera/voyager/pkg/components/graphviewport"
	"github.com/recera/voyager/pkg/graph"
	"github.com/recera/voyager/pkg/scheduler"
	"github.com/recera/voyager/pkg/vdom"
	"github.com/recera/voyager/pkg/viewport/raster"
)

// rasterView runs a graphviewport.Component drawing into an offscreen
// surface on its own scheduler loop. Fields other than faults belong to
// the loop goroutine.
type rasterView struct {
	loop    *scheduler.Scheduler
	surface *raster.Surface
	comp    *graphviewport.Component
	fiber   *scheduler.Fiber
	props   graphviewport.Props
	logger  *slog.Logger

	// Render failures, after the component has unmounted itself
	faults chan error
}

// newRasterView builds a stopped view. onCommit runs on the loop after
// every render of the component.
func newRasterView(ctx context.Context, o *rootOptions, producer graphviewport.Producer, width, height int, onCommit func(node *vdom.VNode)) (*rasterView, error) {
	surface, err := raster.NewSurface(width, height)
	if err != nil {
		return nil, err
	}

	v := &rasterView{
		loop:    scheduler.NewScheduler(),
		surface: surface,
		faults:  make(chan error, 1),
		logger:  o.logger,
	}

	copts := o.componentOptions(ctx, producer, v.loop)
	copts.Factory = raster.Factory(raster.DefaultTheme())
	copts.Container = surface
	copts.ErrorBoundary = func(err error) {
		select {
		case v.faults <- err:
		default:
		}
	}
	v.comp = graphviewport.NewComponent(copts)

	v.props = graphviewport.Props{
		Options:      &o.config.Display,
		OnSelectNode: v.selectNode,
		OnSelectEdge: v.selectEdge,
	}

	v.fiber = v.comp.Attach(v.loop)
	v.loop.SetCommit(func(f *scheduler.Fiber, node *vdom.VNode) {
		if f == v.fiber && onCommit != nil {
			onCommit(node)
		}
	})
	return v, nil
}

// start renders the component once and runs the loop
func (v *rasterView) start() {
	v.loop.MarkDirty(v.fiber)
	v.loop.Start()
}

// update applies fn to the props and hands them to the component
func (v *rasterView) update(fn func(p *graphviewport.Props)) {
	v.loop.Post(func() {
		fn(&v.props)
		v.comp.Update(v.props)
	})
}

// setGraph replaces the rendered graph
func (v *rasterView) setGraph(g *graph.TypeGraph) {
	v.update(func(p *graphviewport.Props) { p.Graph = g })
}

// The viewport reports picks here; they come back in as props.
func (v *rasterView) selectNode(id string) {
	v.props.SelectedNodeID = id
	v.props.SelectedEdgeID = ""
	v.comp.Update(v.props)
}

func (v *rasterView) selectEdge(id string) {
	v.props.SelectedEdgeID = id
	v.comp.Update(v.props)
}

// published returns the current publication, nil while none is on screen.
// Loop goroutine only.
func (v *rasterView) published() *graphviewport.Publication {
	return v.comp.Coordinator().Published().Get()
}

// close unmounts the component and stops the loop
func (v *rasterView) close() {
	done := make(chan struct{})
	v.loop.Post(func() {
		v.comp.Unmount()
		close(done)
	})
	<-done
	v.loop.Stop()
	if err := v.surface.Close(); err != nil {
		v.logger.Warn("failed to close surface", "err", err)
	}
}
