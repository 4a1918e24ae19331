// Package cdp attaches to the IDE over the Chrome DevTools Protocol and
// exposes the agent panel as a remote.Client and remote.Surface.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/logger"
)

// ErrNoTarget is returned when no DevTools page target matches.
var ErrNoTarget = errors.New("no matching devtools target")

// Config is the connection configuration.
type Config struct {
	URL         string        // DevTools endpoint, http:// or ws://
	TargetMatch string        // substring of the target title or URL; overrides the profile
	CallTimeout time.Duration // per-evaluation timeout
}

// ConfigFrom builds a Config from the [remote] section.
func ConfigFrom(cfg config.RemoteConfig) Config {
	return Config{
		URL:         cfg.CDPURL,
		TargetMatch: cfg.TargetMatch,
		CallTimeout: cfg.CallTimeout(),
	}
}

// Browser owns the DevTools connection and lazily attaches to a page target.
// A failed call drops the attachment so the next call reconnects.
type Browser struct {
	cfg    Config
	logger *logger.Logger

	mu          sync.Mutex
	allocCancel context.CancelFunc // closes the websocket, the IDE keeps running
	browserCtx  context.Context
	tabs        map[string]context.Context // match -> attached tab context
}

func NewBrowser(cfg Config, log *logger.Logger) *Browser {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Browser{
		cfg:    cfg,
		logger: log,
		tabs:   make(map[string]context.Context),
	}
}

// tab returns the attached tab context for match, connecting if needed.
//
// chromedp binds the websocket and the target event loop to the context of
// the first call, so both first calls use the long-lived contexts and are only
// awaited with a deadline.
func (b *Browser) tab(ctx context.Context, match string) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.TargetMatch != "" {
		match = b.cfg.TargetMatch
	}
	if tabCtx, ok := b.tabs[match]; ok && tabCtx.Err() == nil {
		return tabCtx, nil
	}

	if b.browserCtx == nil || b.browserCtx.Err() != nil {
		b.resetLocked()
		allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), b.cfg.URL)
		b.allocCancel = allocCancel
		b.browserCtx, _ = chromedp.NewContext(allocCtx)
	}
	browserCtx := b.browserCtx

	var targets []*target.Info
	err := b.await(ctx, func() error {
		var err error
		targets, err = chromedp.Targets(browserCtx)
		return err
	})
	if err != nil {
		b.resetLocked()
		return nil, fmt.Errorf("failed to list devtools targets at %s: %w", b.cfg.URL, err)
	}

	info, err := pickTarget(targets, match)
	if err != nil {
		return nil, err
	}

	// Отмена контекста вкладки закрывает её в IDE: контекст не отменяем, только забываем
	tabCtx, _ := chromedp.NewContext(browserCtx, chromedp.WithTargetID(info.TargetID))
	if err := b.await(ctx, func() error { return chromedp.Run(tabCtx) }); err != nil {
		return nil, fmt.Errorf("failed to attach to target %s: %w", info.TargetID, err)
	}
	b.tabs[match] = tabCtx

	b.logger.Info("attached to devtools target",
		logger.Field{Key: "target_id", Value: string(info.TargetID)},
		logger.Field{Key: "title", Value: info.Title})
	return tabCtx, nil
}

// await runs fn in the background and waits for it at most CallTimeout.
// fn keeps running after a timeout; its result is discarded.
func (b *Browser) await(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(b.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("devtools call timed out after %s", b.cfg.CallTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// evaluate runs expr in the page for match and decodes the result into res.
func (b *Browser) evaluate(ctx context.Context, match, expr string, res any) error {
	tabCtx, err := b.tab(ctx, match)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(tabCtx, b.cfg.CallTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(callCtx, chromedp.Evaluate(expr, res)); err != nil {
		if ctx.Err() == nil {
			b.forget(match)
		}
		return fmt.Errorf("devtools evaluate: %w", err)
	}
	return nil
}

func (b *Browser) forget(match string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg.TargetMatch != "" {
		match = b.cfg.TargetMatch
	}
	delete(b.tabs, match)
}

// Close disconnects from the DevTools endpoint. Attached page targets are
// left open.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Browser) resetLocked() {
	for _, tabCtx := range b.tabs {
		detach(tabCtx)
	}
	b.tabs = make(map[string]context.Context)
	b.browserCtx = nil
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
}

// detach drops the target from a tab context before its parent connection is
// cancelled. chromedp closes the target of a cancelled non-first context,
// which would close the IDE window.
func detach(tabCtx context.Context) {
	if c := chromedp.FromContext(tabCtx); c != nil {
		c.Target = nil
	}
}

// pickTarget chooses the first page target whose title or URL contains match.
// An empty match selects the first page.
func pickTarget(targets []*target.Info, match string) (*target.Info, error) {
	match = strings.ToLower(match)
	for _, t := range targets {
		if t == nil || t.Type != "page" {
			continue
		}
		if match == "" ||
			strings.Contains(strings.ToLower(t.Title), match) ||
			strings.Contains(strings.ToLower(t.URL), match) {
			return t, nil
		}
	}
	if match == "" {
		return nil, ErrNoTarget
	}
	return nil, fmt.Errorf("%w: %q", ErrNoTarget, match)
}
