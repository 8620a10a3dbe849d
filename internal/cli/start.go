package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/guruthechosen/openclaw-harness/internal/alert"
	"github.com/guruthechosen/openclaw-harness/internal/config"
	"github.com/guruthechosen/openclaw-harness/internal/engine"
	"github.com/guruthechosen/openclaw-harness/internal/hookapi"
	"github.com/guruthechosen/openclaw-harness/internal/logger"
	"github.com/guruthechosen/openclaw-harness/internal/provider"
	"github.com/guruthechosen/openclaw-harness/internal/rules"
)

var log = logger.New("cli")

func newStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the hook API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			applyLogConfig(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			prov := buildProvider(cfg)
			if err := prov.WatchOverlay(ctx, cfg.Rules.OverlayPath); err != nil {
				log.Warn("overlay watching disabled: %v", err)
			}

			dispatcher, err := buildDispatcher(cfg)
			if err != nil {
				return err
			}

			eng := engine.New(prov, engineOptions(cfg)...)
			server := hookapi.New(cfg.Server.Addr(), eng, prov, dispatcher)

			log.Info("starting harness (control plane: %s)", orLocal(cfg.ControlPlane.BaseURL))
			return server.Run(ctx)
		},
	}
}

// buildProvider assembles the rule provider. Without a control plane URL
// the fetcher always fails and the harness runs on fallback plus the
// local overlay, which is the intended offline mode.
func buildProvider(cfg *config.Config) *provider.Provider {
	var fetcher provider.Fetcher
	if cfg.ControlPlane.BaseURL != "" {
		fetcher = provider.NewHTTPFetcher(
			cfg.ControlPlane.BaseURL, cfg.ControlPlane.Token, cfg.ControlPlane.FetchTimeout)
	} else {
		fetcher = provider.FetcherFunc(func(ctx context.Context) ([]rules.Rule, error) {
			return nil, errors.New("no control plane configured")
		})
	}
	return provider.New(fetcher,
		provider.WithTTL(cfg.Rules.CacheTTL),
		provider.WithFetchBudget(cfg.ControlPlane.FetchTimeout),
	)
}

func buildDispatcher(cfg *config.Config) (*alert.Dispatcher, error) {
	channels, err := alert.LoadChannels(cfg.Alerts.ChannelsPath)
	if err != nil {
		return nil, err
	}
	sinks := alert.BuildSinks(channels)
	if len(sinks) > 0 {
		log.Info("alerting via %d channel(s)", len(sinks))
	}
	return alert.NewDispatcher(sinks, cfg.Alerts.Timeout), nil
}

func engineOptions(cfg *config.Config) []engine.Option {
	if cfg.Engine.Enforcing() {
		return nil
	}
	log.Warn("enforcement disabled: rule blocks will be reported, not enforced")
	return []engine.Option{engine.MonitorOnly()}
}

func applyLogConfig(cfg *config.Config) {
	if flagLogLevel == "" {
		logger.SetGlobalLevelFromString(cfg.Log.Level)
	}
	if !flagNoColor && cfg.Log.Colored != nil {
		logger.SetColored(*cfg.Log.Colored)
	}
}

func orLocal(url string) string {
	if url == "" {
		return "none, offline mode"
	}
	return url
}
