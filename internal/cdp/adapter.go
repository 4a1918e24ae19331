package cdp

import (
	"context"
	"errors"
	"fmt"

	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/remote"
	"github.com/aatumaykin/agentpilot/internal/variant"
)

// Adapter drives one IDE profile through a Browser. It implements both
// remote.Client and remote.Surface.
type Adapter struct {
	browser *Browser
	profile variant.Profile
}

var (
	_ remote.Client  = (*Adapter)(nil)
	_ remote.Surface = (*Adapter)(nil)
)

// Adapter returns an adapter for profile sharing this browser connection.
func (b *Browser) Adapter(profile variant.Profile) *Adapter {
	return &Adapter{browser: b, profile: profile}
}

// Surface satisfies automation.SurfaceFactory.
func (b *Browser) Surface(profile variant.Profile) (remote.Surface, error) {
	return b.Adapter(profile), nil
}

func (a *Adapter) eval(ctx context.Context, expr string, res any) error {
	return a.browser.evaluate(ctx, a.profile.TargetMatch, expr, res)
}

func (a *Adapter) SendPrompt(ctx context.Context, text string) error {
	var failure string
	if err := a.eval(ctx, sendScript(a.profile.Selectors, text), &failure); err != nil {
		return err
	}
	if failure != "" {
		return fmt.Errorf("send prompt: %s", failure)
	}
	return nil
}

func (a *Adapter) IsBusy(ctx context.Context) (bool, error) {
	var busy bool
	if err := a.eval(ctx, busyScript(a.profile.Selectors), &busy); err != nil {
		return false, err
	}
	return busy, nil
}

func (a *Adapter) Controls(ctx context.Context) ([]classifier.Control, error) {
	var ctrls []classifier.Control
	if err := a.eval(ctx, controlsScript(a.profile.Selectors), &ctrls); err != nil {
		return nil, err
	}
	return ctrls, nil
}

func (a *Adapter) Click(ctx context.Context, ref string) error {
	var ok bool
	if err := a.eval(ctx, clickScript(ref), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", remote.ErrControlNotFound, ref)
	}
	return nil
}

func (a *Adapter) NewConversation(ctx context.Context) error {
	if a.profile.Selectors.NewConversation == "" {
		return errors.New("profile has no new conversation control")
	}
	var ok bool
	if err := a.eval(ctx, clickSelectorScript(a.profile.Selectors.NewConversation), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: new conversation", remote.ErrControlNotFound)
	}
	return nil
}

func (a *Adapter) Tabs(ctx context.Context) ([]remote.Tab, error) {
	if !a.profile.SupportsTabs {
		return nil, nil
	}
	var tabs []remote.Tab
	if err := a.eval(ctx, tabsScript(a.profile.Selectors), &tabs); err != nil {
		return nil, err
	}
	return tabs, nil
}
