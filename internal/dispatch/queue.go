// Package dispatch serializes prompt delivery to the remote client.
//
// Submitted commands are delivered strictly in FIFO order by a single
// dispatch cycle. The head of the queue is never taken while the remote
// surface reports busy, and a failing command never blocks the ones behind it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/agentpilot/internal/clock"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/metrics"
	"github.com/aatumaykin/agentpilot/internal/remote"
)

var (
	// ErrQueueClosed is returned by Submit after Close and settles commands
	// still pending at Close.
	ErrQueueClosed = errors.New("dispatch queue closed")
	// ErrEmptyPrompt is returned for blank prompt text.
	ErrEmptyPrompt = errors.New("prompt text is empty")
	// ErrSendPanic settles a command whose delivery panicked.
	ErrSendPanic = errors.New("prompt delivery panicked")
)

const (
	DefaultBusyBackoff     = 2000 * time.Millisecond
	DefaultConfirmInterval = 500 * time.Millisecond
	DefaultConfirmAttempts = 10
)

// Options tunes the dispatch cycle timings.
type Options struct {
	BusyBackoff     time.Duration // wait between busy probes before taking the head
	ConfirmInterval time.Duration // wait between probes after a send
	ConfirmAttempts int           // probes used to confirm processing began
}

func (o Options) withDefaults() Options {
	if o.BusyBackoff <= 0 {
		o.BusyBackoff = DefaultBusyBackoff
	}
	if o.ConfirmInterval <= 0 {
		o.ConfirmInterval = DefaultConfirmInterval
	}
	if o.ConfirmAttempts <= 0 {
		o.ConfirmAttempts = DefaultConfirmAttempts
	}
	return o
}

// Snapshot is a copy of the queue state delivered to the observer.
type Snapshot struct {
	Items      []Command `json:"items" yaml:"items"`
	Current    *Command  `json:"current,omitempty" yaml:"current,omitempty"`
	Processing bool      `json:"processing" yaml:"processing"`
}

type entry struct {
	cmd     Command
	receipt *Receipt
}

// Queue is the command dispatch queue.
type Queue struct {
	client  remote.Client
	clock   clock.Clock
	logger  *logger.Logger
	metrics *metrics.PrometheusMetrics
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	items      []*entry
	current    *entry
	processing bool
	closed     bool

	notifyMu sync.Mutex
	observer func(Snapshot)
}

// New creates a queue delivering to client. m may be nil.
func New(client remote.Client, clk clock.Clock, log *logger.Logger, m *metrics.PrometheusMetrics, opts Options) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		client:  client,
		clock:   clk,
		logger:  log,
		metrics: m,
		opts:    opts.withDefaults(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit appends a pending command and starts the dispatch cycle if idle.
// It never blocks on delivery.
func (q *Queue) Submit(text string) (*Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPrompt
	}

	e := &entry{
		cmd: Command{
			ID:          uuid.NewString(),
			Text:        text,
			Status:      StatusPending,
			SubmittedAt: q.clock.Now(),
		},
	}
	e.receipt = newReceipt(e.cmd.ID)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q.items = append(q.items, e)
	depth := len(q.items)
	start := !q.processing
	if start {
		q.processing = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	q.logger.Debug("command queued",
		logger.Field{Key: "command_id", Value: e.cmd.ID},
		logger.Field{Key: "depth", Value: depth})
	q.notify()

	if start {
		go q.run()
	}
	return e.receipt, nil
}

// OnChange registers the single observer. A later call replaces it.
func (q *Queue) OnChange(fn func(Snapshot)) {
	q.notifyMu.Lock()
	defer q.notifyMu.Unlock()
	q.observer = fn
}

// Snapshot returns a copy of the queue state.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *Queue) snapshotLocked() Snapshot {
	snap := Snapshot{
		Items:      make([]Command, 0, len(q.items)),
		Processing: q.processing,
	}
	for _, e := range q.items {
		snap.Items = append(snap.Items, e.cmd)
	}
	if q.current != nil {
		cur := q.current.cmd
		snap.Current = &cur
	}
	return snap
}

// notify delivers the current state to the observer synchronously.
func (q *Queue) notify() {
	q.notifyMu.Lock()
	defer q.notifyMu.Unlock()
	if q.observer == nil {
		return
	}
	q.mu.Lock()
	snap := q.snapshotLocked()
	q.mu.Unlock()
	q.observer(snap)
}

// Close stops accepting commands, fails the ones still pending and waits for
// the in-flight send, if any, to settle.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := q.items
	q.items = nil
	q.mu.Unlock()

	q.cancel()
	for _, e := range dropped {
		e.cmd.Status = StatusFailed
		e.receipt.settle(StatusFailed, ErrQueueClosed)
	}
	if len(dropped) > 0 {
		q.logger.Warn("dispatch queue closed with pending commands",
			logger.Field{Key: "dropped", Value: len(dropped)})
	}

	q.wg.Wait()
	q.metrics.SetQueueDepth(0)
	q.notify()
}

// run is the dispatch cycle. Exactly one instance runs while processing is set.
func (q *Queue) run() {
	defer q.wg.Done()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := fmt.Errorf("dispatch cycle panic: %v", r)
		q.logger.Error("dispatch cycle panic recovered", err)

		q.mu.Lock()
		cur := q.current
		q.current = nil
		if cur != nil && !cur.cmd.Status.Terminal() {
			cur.cmd.Status = StatusFailed
		}
		// Оставшиеся команды не должны ждать следующего Submit
		restart := len(q.items) > 0 && !q.closed
		if restart {
			q.wg.Add(1)
		} else {
			q.processing = false
		}
		q.mu.Unlock()

		if cur != nil {
			cur.receipt.settle(StatusFailed, err)
		}
		q.notify()
		if restart {
			go q.run()
		}
	}()

	for {
		q.mu.Lock()
		if len(q.items) == 0 || q.closed {
			// Проверка и сброс флага под одним локом: Submit не потеряет пробуждение
			q.processing = false
			q.mu.Unlock()
			q.notify()
			return
		}
		q.mu.Unlock()

		if !q.awaitIdle() {
			q.mu.Lock()
			q.processing = false
			q.mu.Unlock()
			return
		}

		e := q.dequeue()
		if e == nil {
			continue
		}
		q.deliver(e)
	}
}

// awaitIdle polls until the client reports idle. It returns false only when
// the queue is closed.
func (q *Queue) awaitIdle() bool {
	for {
		busy, err := q.client.IsBusy(q.ctx)
		if q.ctx.Err() != nil {
			return false
		}
		if err != nil {
			q.logger.Warn("busy probe failed, assuming idle",
				logger.Field{Key: "error", Value: err.Error()})
			return true
		}
		if !busy {
			return true
		}

		q.metrics.BusyWait()
		q.logger.Debug("remote busy, backing off",
			logger.Field{Key: "backoff", Value: q.opts.BusyBackoff.String()})
		if err := q.clock.Sleep(q.ctx, q.opts.BusyBackoff); err != nil {
			return false
		}
	}
}

func (q *Queue) dequeue() *entry {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil
	}
	e := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	e.cmd.Status = StatusSending
	q.current = e
	depth := len(q.items)
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	q.notify()
	return e
}

func (q *Queue) deliver(e *entry) {
	log := q.logger.With(logger.Field{Key: "command_id", Value: e.cmd.ID})

	// Отправка не прерывается закрытием очереди
	start := q.clock.Now()
	err := q.send(e.cmd.Text)
	elapsed := q.clock.Now().Sub(start)

	status := StatusSent
	if err != nil {
		status = StatusFailed
		log.Error("command delivery failed", err)
		q.metrics.RecordCommand(metrics.StatusFailed, elapsed)
	} else {
		log.Info("command delivered", logger.Field{Key: "duration", Value: elapsed.String()})
		q.metrics.RecordCommand(metrics.StatusSent, elapsed)
	}

	q.mu.Lock()
	e.cmd.Status = status
	q.mu.Unlock()
	e.receipt.settle(status, err)

	if err == nil {
		q.confirmProcessing(log)
	}

	q.mu.Lock()
	q.current = nil
	q.mu.Unlock()
	q.notify()
}

// send calls SendPrompt and turns a panic into a delivery error so the
// cycle goes on with the next command.
func (q *Queue) send(text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSendPanic, r)
		}
	}()
	return q.client.SendPrompt(context.WithoutCancel(q.ctx), text)
}

// confirmProcessing waits for the client to turn busy after a send. A miss is
// only logged.
func (q *Queue) confirmProcessing(log *logger.Logger) {
	for i := 0; i < q.opts.ConfirmAttempts; i++ {
		if err := q.clock.Sleep(q.ctx, q.opts.ConfirmInterval); err != nil {
			return
		}
		busy, err := q.client.IsBusy(q.ctx)
		if err != nil {
			if q.ctx.Err() != nil {
				return
			}
			log.Debug("busy confirmation probe failed", logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		if busy {
			log.Debug("remote started processing", logger.Field{Key: "attempt", Value: i + 1})
			return
		}
	}

	q.metrics.BusyConfirmTimeout()
	log.Warn("remote did not report processing after send",
		logger.Field{Key: "attempts", Value: q.opts.ConfirmAttempts})
}
