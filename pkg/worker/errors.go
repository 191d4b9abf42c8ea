package worker

import "errors"

var (
	// ErrNilProcessor indicates a nil processor function was provided
	ErrNilProcessor = errors.New("worker: processor function cannot be nil")
	// ErrPoolNotStarted indicates work was submitted before Start
	ErrPoolNotStarted = errors.New("worker: pool not started")
	// ErrPoolStopped indicates work was submitted after Stop
	ErrPoolStopped = errors.New("worker: pool stopped")
	// ErrQueueFull indicates the work queue is full and the item was dropped
	ErrQueueFull = errors.New("worker: queue full")
	// ErrStopTimeout indicates workers did not drain within the stop timeout
	ErrStopTimeout = errors.New("worker: stop timeout exceeded")
)
