package exectask

import (
	"sync"

	"github.com/cmdpool-go/cmdpool/internal/execerr"
	"github.com/cmdpool-go/cmdpool/internal/execresult"
)

// Result pairs an execution outcome with the error it failed with, if any.
// Exactly one of (Value, Err) is meaningful at a time; both are always
// present so a Handle can distinguish "not yet sent" from "sent".
type Result struct {
	Value execresult.Result
	Err   error
}

// Handle is the caller-held side of a one-shot rendezvous: it blocks until
// a worker delivers a Result, or reports execerr.SenderGone if the Sender
// is dropped without ever sending.
type Handle struct {
	id uint64
	ch <-chan Result
}

// Sender is the worker-held side of the rendezvous created alongside a
// Handle. SendResult may be called at most once.
type Sender struct {
	ch   chan<- Result
	mu   sync.Mutex
	sent bool
}

// NewHandle creates a linked Handle/Sender pair for task id.
func NewHandle(id uint64) (*Handle, *Sender) {
	ch := make(chan Result, 1)
	return &Handle{id: id, ch: ch}, &Sender{ch: ch}
}

// ID returns the task ID this handle corresponds to.
func (h *Handle) ID() uint64 { return h.id }

// Wait blocks until a result is sent, or returns execerr.SenderGone if the
// channel is closed without a send (see Sender.Drop).
func (h *Handle) Wait() (execresult.Result, error) {
	r, ok := <-h.ch
	if !ok {
		return execresult.Result{}, execerr.SenderGone
	}
	return r.Value, r.Err
}

// TryGet performs a non-blocking poll: ok is false if no result has been
// sent yet. If the sender was dropped without sending, TryGet returns
// execerr.SenderGone as the error with ok true.
func (h *Handle) TryGet() (res execresult.Result, err error, ok bool) {
	select {
	case r, chOK := <-h.ch:
		if !chOK {
			return execresult.Result{}, execerr.SenderGone, true
		}
		return r.Value, r.Err, true
	default:
		return execresult.Result{}, nil, false
	}
}

// SendResult delivers value/err to the waiting Handle. It returns false if
// called more than once; only the first call has any effect.
func (s *Sender) SendResult(value execresult.Result, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent {
		return false
	}
	s.sent = true
	s.ch <- Result{Value: value, Err: err}
	close(s.ch)
	return true
}

// Drop releases the sender without delivering a result. Any blocked or
// future Wait/TryGet call observes execerr.SenderGone. Drop is a no-op if
// SendResult already ran.
func (s *Sender) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent {
		return
	}
	s.sent = true
	close(s.ch)
}
