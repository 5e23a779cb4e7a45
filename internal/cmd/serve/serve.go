// Package serve implements the serve subcommand: it wires up the device
// registry, rule store, engine and monitor, and runs them alongside the
// Prometheus exporter and health endpoint.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/clambin/go-common/charmer"
	"github.com/clambin/go-common/slackbot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/clambin/homehub/internal/device"
	"github.com/clambin/homehub/internal/engine"
	"github.com/clambin/homehub/internal/engine/notifier"
	"github.com/clambin/homehub/internal/health"
	"github.com/clambin/homehub/internal/store"
)

var Cmd = cobra.Command{
	Use:   "serve",
	Short: "run the rule engine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), viper.GetViper(), cmd.Root().Version, charmer.GetLogger(cmd))
	},
}

func run(ctx context.Context, cfg *viper.Viper, version string, logger *slog.Logger) error {
	registry := device.NewRegistry(logger.With(slog.String("component", "registry")))
	if err := registry.LoadFile(cfg.GetString("devices.file")); err != nil {
		return fmt.Errorf("devices: %w", err)
	}

	db, err := store.Open(cfg.GetString("store.path"), logger.With(slog.String("component", "store")))
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { _ = db.Close() }()

	var bot *slackbot.SlackBot
	notifiers := notifier.Notifiers{notifier.SLogNotifier{Logger: logger.With(slog.String("component", "notifier"))}}
	if token := cfg.GetString("slack.token"); token != "" {
		bot = slackbot.New(
			token,
			slackbot.WithName("homehub "+version),
			slackbot.WithLogger(logger.With(slog.String("component", "slackbot"))),
		)
		notifiers = append(notifiers, notifier.SlackNotifier{Bot: bot, Channel: cfg.GetString("slack.channel")})
	}

	eng := engine.New(
		registry,
		db,
		engine.RegistryExecutor{Registry: registry, Logger: logger.With(slog.String("component", "executor"))},
		engine.SLogRuleLog{Logger: logger.With(slog.String("component", "rulelog"))},
		notifiers,
		logger.With(slog.String("component", "engine")),
	)
	if err = eng.Load(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	prometheus.MustRegister(eng)

	monitor := engine.Monitor{
		Engine:   eng,
		Events:   registry,
		Interval: cfg.GetDuration("tick.interval"),
		Logger:   logger.With(slog.String("component", "monitor")),
	}

	logger.Info("starting", slog.String("version", version))
	defer logger.Info("stopped")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return monitor.Run(ctx) })
	if bot != nil {
		group.Go(func() error { return bot.Run(ctx) })
	}
	group.Go(func() error {
		return serveHTTP(ctx, cfg.GetString("exporter.addr"), promhttp.Handler(), "/metrics")
	})
	group.Go(func() error {
		h := &health.Health{Engine: eng, Logger: logger.With(slog.String("component", "health"))}
		return serveHTTP(ctx, cfg.GetString("health.addr"), h, "/health")
	})
	return group.Wait()
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		err := server.Shutdown(context.Background())
		if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) {
			err = errors.Join(err, serveErr)
		}
		return err
	}
}
