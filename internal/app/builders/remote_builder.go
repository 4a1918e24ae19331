package builders

import (
	"github.com/aatumaykin/agentpilot/internal/automation"
	"github.com/aatumaykin/agentpilot/internal/cdp"
	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/remote"
	"github.com/aatumaykin/agentpilot/internal/variant"
)

type RemoteBuilder struct {
	config *config.Config
	logger *logger.Logger
}

func NewRemoteBuilder(cfg *config.Config, log *logger.Logger) *RemoteBuilder {
	return &RemoteBuilder{
		config: cfg,
		logger: log,
	}
}

// Remote is the DevTools connection split into the prompt client used by the
// dispatch queue and the surface factory used by the poll loops.
type Remote struct {
	Browser  *cdp.Browser
	Client   remote.Client
	Surfaces automation.SurfaceFactory
}

// Build connects lazily: nothing touches the endpoint until the first call.
// The prompt client follows the configured IDE, an unknown name falls back
// to the default profile.
func (b *RemoteBuilder) Build() Remote {
	browser := cdp.NewBrowser(cdp.ConfigFrom(b.config.Remote), b.logger.Component("cdp"))

	profile, err := variant.Lookup(b.config.Automation.IDE)
	if err != nil {
		b.logger.Warn("unknown ide, prompt client uses default profile",
			logger.Field{Key: "ide", Value: b.config.Automation.IDE},
			logger.Field{Key: "default", Value: variant.Default})
		profile, _ = variant.Lookup(variant.Default)
	}

	return Remote{
		Browser:  browser,
		Client:   remote.Coalesce(browser.Adapter(profile)),
		Surfaces: browser.Surface,
	}
}
