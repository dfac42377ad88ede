package graphviewport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/recera/voyager/pkg/graph"
)

// queue is a Dispatcher whose tasks run only when the test pops them
type queue chan func()

func (q queue) Post(fn func()) { q <- fn }

// runNext runs the next posted task, failing if none arrives in time
func (q queue) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-q:
		fn()
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for a posted completion")
	}
}

type result struct {
	layout   *graph.Layout
	err      error
	panicVal any
}

// job is a render job held open until the test answers it
type job struct {
	graph *graph.TypeGraph
	opts  *graph.DisplayOptions
	reply chan result
}

func (j *job) succeed(name string) {
	j.reply <- result{layout: &graph.Layout{Boxes: []graph.Box{{ID: name}}}}
}

func (j *job) fail(err error) { j.reply <- result{err: err} }

// fakeProducer hands every Produce call to the test as a job
type fakeProducer struct {
	jobs chan *job
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{jobs: make(chan *job, 16)}
}

func (p *fakeProducer) Produce(_ context.Context, g *graph.TypeGraph, opts *graph.DisplayOptions) (*graph.Layout, error) {
	j := &job{graph: g, opts: opts, reply: make(chan result, 1)}
	p.jobs <- j
	r := <-j.reply
	if r.panicVal != nil {
		panic(r.panicVal)
	}
	return r.layout, r.err
}

func (p *fakeProducer) next(t *testing.T) *job {
	t.Helper()
	select {
	case j := <-p.jobs:
		return j
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for a render job")
		return nil
	}
}

func (p *fakeProducer) expectIdle(t *testing.T) {
	t.Helper()
	select {
	case j := <-p.jobs:
		t.Fatalf("unexpected render job for %s", j.graph.RootID)
	case <-time.After(20 * time.Millisecond):
	}
}

// recorder logs every Viewport call in order
type recorder struct {
	mu      sync.Mutex
	calls   []string
	viewers []*fakeViewport
	failOn  string
	panicOn string
}

func (r *recorder) log(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := r.calls
	r.calls = nil
	return calls
}

func (r *recorder) factory(layout *graph.Layout, container Container, onSelectNode, onSelectEdge func(string)) (Viewport, error) {
	name := layout.Boxes[0].ID
	if name == r.failOn {
		return nil, fmt.Errorf("cannot draw %s", name)
	}
	if name == r.panicOn {
		panic("boom")
	}
	r.log("create %s in %v", name, container)
	vp := &fakeViewport{name: name, rec: r, onSelectNode: onSelectNode, onSelectEdge: onSelectEdge}
	r.mu.Lock()
	r.viewers = append(r.viewers, vp)
	r.mu.Unlock()
	return vp, nil
}

type fakeViewport struct {
	name string
	rec  *recorder

	onSelectNode func(string)
	onSelectEdge func(string)
}

func (v *fakeViewport) SelectNodeByID(id string) { v.rec.log("%s node %q", v.name, id) }
func (v *fakeViewport) SelectEdgeByID(id string) { v.rec.log("%s edge %q", v.name, id) }
func (v *fakeViewport) FocusElement(id string)   { v.rec.log("%s focus %s", v.name, id) }
func (v *fakeViewport) Resize()                  { v.rec.log("%s resize", v.name) }
func (v *fakeViewport) Destroy()                 { v.rec.log("%s destroy", v.name) }
func (v *fakeViewport) Step(delta int)           { v.rec.log("%s step %d", v.name, delta) }
func (v *fakeViewport) Follow()                  { v.rec.log("%s follow", v.name) }
func (v *fakeViewport) Click(x, y float64)       { v.rec.log("%s click %g,%g", v.name, x, y) }

func testGraph(name string) *graph.TypeGraph {
	return &graph.TypeGraph{RootID: name}
}
