package server

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a ShutdownController
type State int32

const (
	StateRunning State = iota
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// ShutdownController turns the first shutdown request (a signal or a call to
// Trigger) into a fixed set of actions and records that the server is going down.
//
// The registered actions must not block: they flip state, cancel contexts and
// close handles so that blocked accepts, reads and writes return. Joining
// workers and releasing the device happens afterwards in the caller's own
// control flow.
type ShutdownController struct {
	state     atomic.Int32
	mu        sync.Mutex
	actions   []func()
	signal    os.Signal
	triggered chan struct{}
}

// NewShutdownController creates a controller in state Running
func NewShutdownController() *ShutdownController {
	return &ShutdownController{
		triggered: make(chan struct{}),
	}
}

// OnTrigger registers fn to run when the controller is triggered.
// If it was triggered already, fn runs right away.
func (c *ShutdownController) OnTrigger(fn func()) {
	c.mu.Lock()
	if c.State() == StateRunning {
		c.actions = append(c.actions, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn()
}

// Trigger starts the shutdown. Only the first call runs the registered
// actions; it returns false for every later call.
func (c *ShutdownController) Trigger() bool {
	return c.trigger(nil)
}

// Watch triggers the controller when one of sigs is received.
// The returned function stops watching.
func (c *ShutdownController) Watch(sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			Logger.Debugf("Received signal %s", sig)
			c.trigger(sig)
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// Triggered returns a channel that is closed once the shutdown started
func (c *ShutdownController) Triggered() <-chan struct{} {
	return c.triggered
}

// Signal returns the signal that triggered the shutdown, or nil
func (c *ShutdownController) Signal() os.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signal
}

// Finish marks the cleanup as complete
func (c *ShutdownController) Finish() {
	c.state.Store(int32(StateTerminated))
}

func (c *ShutdownController) State() State {
	return State(c.state.Load())
}

func (c *ShutdownController) trigger(sig os.Signal) bool {
	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown)) {
		return false
	}

	c.mu.Lock()
	c.signal = sig
	actions := c.actions
	c.actions = nil
	c.mu.Unlock()

	for _, fn := range actions {
		fn()
	}
	close(c.triggered)
	return true
}
