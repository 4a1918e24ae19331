package dispatch

import (
	"context"
	"sync"
	"time"
)

// Status is the lifecycle position of a Command. It only moves forward.
type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// Command is one queued prompt.
type Command struct {
	ID          string    `json:"id" yaml:"id"`
	Text        string    `json:"text" yaml:"text"`
	Status      Status    `json:"status" yaml:"status"`
	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`
}

// Receipt lets the submitter await settlement of its own command.
type Receipt struct {
	id     string
	done   chan struct{}
	once   sync.Once
	status Status
	err    error
}

func newReceipt(id string) *Receipt {
	return &Receipt{id: id, done: make(chan struct{}), status: StatusPending}
}

// ID returns the command id.
func (r *Receipt) ID() string {
	return r.id
}

// Done is closed once the command reaches a terminal status.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the command settles or ctx ends. It returns the terminal
// status and the delivery error, if any.
func (r *Receipt) Wait(ctx context.Context) (Status, error) {
	select {
	case <-r.done:
		return r.status, r.err
	case <-ctx.Done():
		return StatusPending, ctx.Err()
	}
}

// settle records the first terminal outcome; later calls are ignored.
func (r *Receipt) settle(status Status, err error) {
	r.once.Do(func() {
		r.status = status
		r.err = err
		close(r.done)
	})
}
