package reactive

import (
	"sync"

	"github.com/recera/voyager/pkg/scheduler"
)

// Scheduler is the part of the scheduler the reactive system needs
type Scheduler interface {
	MarkDirty(fiber *scheduler.Fiber)
}

// State is a reactive value. Setting it marks every subscribed fiber dirty.
type State[T any] struct {
	value T
	mu    sync.RWMutex

	deps      map[uint32]*scheduler.Fiber
	depsMu    sync.RWMutex
	scheduler Scheduler
}

// NewState creates a new reactive state
func NewState[T any](initial T, sched Scheduler) *State[T] {
	return &State[T]{
		value:     initial,
		deps:      make(map[uint32]*scheduler.Fiber),
		scheduler: sched,
	}
}

// Get returns the current value
func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and marks dependent fibers dirty
func (s *State[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()

	s.notify()
}

// Update atomically reads, modifies, and writes the value
func (s *State[T]) Update(fn func(T) T) {
	s.mu.Lock()
	s.value = fn(s.value)
	s.mu.Unlock()

	s.notify()
}

// Swap replaces the value and returns the previous one
func (s *State[T]) Swap(value T) T {
	s.mu.Lock()
	old := s.value
	s.value = value
	s.mu.Unlock()

	s.notify()
	return old
}

func (s *State[T]) notify() {
	s.depsMu.RLock()
	sched := s.scheduler
	deps := make([]*scheduler.Fiber, 0, len(s.deps))
	for _, fiber := range s.deps {
		deps = append(deps, fiber)
	}
	s.depsMu.RUnlock()

	if sched == nil {
		return
	}
	// Outside the lock: MarkDirty may re-enter Subscribe.
	for _, fiber := range deps {
		sched.MarkDirty(fiber)
	}
}

// Subscribe adds a fiber as a dependency
func (s *State[T]) Subscribe(fiber *scheduler.Fiber) {
	if fiber == nil {
		return
	}

	s.depsMu.Lock()
	defer s.depsMu.Unlock()
	s.deps[fiber.ID()] = fiber
}

// Unsubscribe removes a fiber as a dependency
func (s *State[T]) Unsubscribe(fiber *scheduler.Fiber) {
	if fiber == nil {
		return
	}

	s.depsMu.Lock()
	defer s.depsMu.Unlock()
	delete(s.deps, fiber.ID())
}

// Bind attaches the state to a scheduler after construction
func (s *State[T]) Bind(sched Scheduler) {
	s.depsMu.Lock()
	s.scheduler = sched
	s.depsMu.Unlock()
}
