// Package remotetest provides in-memory Client and Surface doubles.
package remotetest

import (
	"context"
	"sync"
	"time"
)

// Client is a scriptable remote.Client.
type Client struct {
	mu          sync.Mutex
	busy        bool
	busyScript  []bool
	busyErr     error
	busyHook    func()
	busyCalls   int
	sent        []string
	failures    map[string]error
	sendHook    func(text string)
	sendDelay   time.Duration
	inFlight    int
	maxInFlight int
	sendCtxErr  []error
}

// NewClient returns an idle client that accepts every prompt.
func NewClient() *Client {
	return &Client{failures: make(map[string]error)}
}

// SetBusy sets the steady busy state reported once the script is exhausted.
func (c *Client) SetBusy(busy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = busy
}

// ScriptBusy queues answers returned by the next IsBusy calls.
func (c *Client) ScriptBusy(answers ...bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busyScript = append(c.busyScript, answers...)
}

func (c *Client) SetBusyErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busyErr = err
}

// SetBusyHook runs fn at the start of every IsBusy call, outside the lock.
func (c *Client) SetBusyHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busyHook = fn
}

// FailOn makes SendPrompt return err for text.
func (c *Client) FailOn(text string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[text] = err
}

// SetSendHook runs fn inside SendPrompt before it returns.
func (c *Client) SetSendHook(fn func(text string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendHook = fn
}

func (c *Client) SetSendDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendDelay = d
}

func (c *Client) IsBusy(ctx context.Context) (bool, error) {
	c.mu.Lock()
	hook := c.busyHook
	c.busyCalls++
	c.mu.Unlock()

	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busyErr != nil {
		return false, c.busyErr
	}
	if len(c.busyScript) > 0 {
		answer := c.busyScript[0]
		c.busyScript = c.busyScript[1:]
		return answer, nil
	}
	return c.busy, nil
}

func (c *Client) SendPrompt(ctx context.Context, text string) error {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
	hook := c.sendHook
	delay := c.sendDelay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if hook != nil {
		hook(text)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--
	c.sendCtxErr = append(c.sendCtxErr, ctx.Err())
	if err, ok := c.failures[text]; ok {
		return err
	}
	c.sent = append(c.sent, text)
	return nil
}

// Sent returns successfully delivered prompts in delivery order.
func (c *Client) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *Client) BusyCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busyCalls
}

// MaxInFlight reports the highest number of concurrent SendPrompt calls seen.
func (c *Client) MaxInFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInFlight
}

// SendContextErrors returns ctx.Err() observed at the end of each send.
func (c *Client) SendContextErrors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.sendCtxErr...)
}
