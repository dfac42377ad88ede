package scheduler

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/recera/voyager/pkg/vdom"
)

// RenderFunc is the function type for component render functions
type RenderFunc func() *vdom.VNode

// CommitFunc receives the tree a fiber produced on its latest render
type CommitFunc func(fiber *Fiber, node *vdom.VNode)

// ErrorHandler handles panics raised while rendering a fiber or running a task.
// fiber is nil for tasks. Returns true to keep the fiber scheduled, false to
// remove it.
type ErrorHandler func(fiber *Fiber, err error) bool

// Fiber represents a lightweight component execution context
type Fiber struct {
	id     uint32
	parent *Fiber
	vnode  *vdom.VNode // last rendered tree

	render RenderFunc
	dirty  atomic.Bool

	onError ErrorHandler

	userData interface{}
}

// Scheduler is a single-threaded UI loop. Fiber renders and posted tasks
// all run on the loop goroutine, one at a time, in the order they were queued.
type Scheduler struct {
	mu         sync.Mutex
	fibers     map[uint32]*Fiber
	nextID     uint32
	dirtyQueue []*Fiber
	taskQueue  []func()

	wake    chan struct{}
	stop    chan struct{}
	running atomic.Bool

	commit       CommitFunc
	defaultError ErrorHandler
}

// NewScheduler creates a new scheduler instance
func NewScheduler() *Scheduler {
	return &Scheduler{
		fibers: make(map[uint32]*Fiber),
		nextID: 1,
		wake:   make(chan struct{}, 1),
	}
}

// SetCommit sets the function that receives rendered trees
func (s *Scheduler) SetCommit(commit CommitFunc) {
	s.commit = commit
}

// SetDefaultErrorHandler sets the error handler used by fibers without their
// own handler and by tasks.
func (s *Scheduler) SetDefaultErrorHandler(handler ErrorHandler) {
	s.defaultError = handler
}

// CreateFiber creates a new fiber for a component
func (s *Scheduler) CreateFiber(render RenderFunc, parent *Fiber) *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	fiber := &Fiber{
		id:     id,
		parent: parent,
		render: render,
	}
	s.fibers[id] = fiber
	return fiber
}

// RemoveFiber removes a fiber from the scheduler
func (s *Scheduler) RemoveFiber(fiber *Fiber) {
	if fiber == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.fibers, fiber.id)
}

// MarkDirty queues a fiber for re-render. Marks made while the fiber is
// already queued are coalesced.
func (s *Scheduler) MarkDirty(fiber *Fiber) {
	if fiber == nil {
		return
	}
	if !fiber.dirty.CompareAndSwap(false, true) {
		log().Debug("fiber already dirty", "fiber", fiber.id)
		return
	}

	s.mu.Lock()
	s.dirtyQueue = append(s.dirtyQueue, fiber)
	s.mu.Unlock()
	s.signal()
}

// Post queues fn to run on the loop goroutine. It never blocks and never
// drops work; tasks posted while the loop is stopped run once it starts.
func (s *Scheduler) Post(fn func()) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	s.taskQueue = append(s.taskQueue, fn)
	s.mu.Unlock()
	s.signal()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	if !s.running.CompareAndSwap(false, true) {
		log().Debug("scheduler already running")
		return
	}

	s.mu.Lock()
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	log().Debug("starting scheduler loop")
	go s.loop(stop)
	// Pick up anything queued before Start.
	s.signal()
}

// Stop stops the scheduler. Queued work is kept for the next Start.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	close(s.stop)
	s.mu.Unlock()
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) loop(stop chan struct{}) {
	defer log().Debug("scheduler loop ended")

	for {
		select {
		case <-stop:
			return
		case <-s.wake:
		}

		select {
		case <-stop:
			return
		default:
		}
		s.RunPending()
	}
}

// RunPending drains the queues on the calling goroutine: tasks first, then
// dirty fibers. Work queued while draining runs before it returns.
// It must not be called while the loop is running.
func (s *Scheduler) RunPending() {
	for {
		s.mu.Lock()
		tasks := s.taskQueue
		fibers := s.dirtyQueue
		s.taskQueue = nil
		s.dirtyQueue = nil
		s.mu.Unlock()

		if len(tasks) == 0 && len(fibers) == 0 {
			return
		}

		log().Debug("processing batch", "tasks", len(tasks), "fibers", len(fibers))
		for _, task := range tasks {
			s.runTask(task)
		}
		for _, fiber := range fibers {
			s.processFiber(fiber)
		}
	}
}

func (s *Scheduler) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.handleError(nil, r)
		}
	}()
	task()
}

// processFiber renders a single fiber and commits the result
func (s *Scheduler) processFiber(fiber *Fiber) {
	if !fiber.dirty.CompareAndSwap(true, false) {
		return
	}
	if s.GetFiber(fiber.id) == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.handleError(fiber, r)
		}
	}()

	next := fiber.render()
	fiber.vnode = next
	if s.commit != nil {
		s.commit(fiber, next)
	}
}

// handleError routes a recovered panic to the fiber's error handler
func (s *Scheduler) handleError(fiber *Fiber, r interface{}) {
	err, ok := r.(error)
	if !ok {
		if fiber != nil {
			err = fmt.Errorf("fiber %d panic: %v", fiber.id, r)
		} else {
			err = fmt.Errorf("task panic: %v", r)
		}
	}
	log().Error("recovered panic", "err", err, "stack", string(debug.Stack()))

	handler := s.defaultError
	if fiber != nil && fiber.onError != nil {
		handler = fiber.onError
	}

	shouldContinue := false
	if handler != nil {
		shouldContinue = handler(fiber, err)
	}
	if fiber != nil && !shouldContinue {
		s.RemoveFiber(fiber)
	}
}

// GetFiber returns a fiber by ID
func (s *Scheduler) GetFiber(id uint32) *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fibers[id]
}

// FiberCount returns the number of active fibers
func (s *Scheduler) FiberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fibers)
}

// SetUserData sets custom data on a fiber
func (f *Fiber) SetUserData(data interface{}) {
	f.userData = data
}

// GetUserData gets custom data from a fiber
func (f *Fiber) GetUserData() interface{} {
	return f.userData
}

// ID returns the fiber's unique ID
func (f *Fiber) ID() uint32 {
	return f.id
}

// Parent returns the fiber's parent
func (f *Fiber) Parent() *Fiber {
	return f.parent
}

// VNode returns the fiber's last rendered VNode
func (f *Fiber) VNode() *vdom.VNode {
	return f.vnode
}

// SetErrorHandler sets a custom error handler for this fiber
func (f *Fiber) SetErrorHandler(handler ErrorHandler) {
	f.onError = handler
}

var logger atomic.Pointer[slog.Logger]

func init() {
	SetLogger(nil)
}

// SetLogger sets the logger used by the scheduler. Nil silences it.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger.Store(l.With("component", "scheduler"))
}

func log() *slog.Logger {
	return logger.Load()
}
