// Command loanledger serves the classroom device loan API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/config"
	"github.com/classroom-devices/loanledger/httpapi"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/identity/featureclient"
	"github.com/classroom-devices/loanledger/internal/schema"
	"github.com/classroom-devices/loanledger/ledger/oteladapters"
)

const (
	instrumentationName = "github.com/classroom-devices/loanledger"
	version             = "dev"
	shutdownTimeout     = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("loanledger stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability{logger: logger}

	if cfg.OTelEnabled {
		providers, err := config.NewObservabilityProviders(ctx, cfg.OTLPEndpoint, version)
		if err != nil {
			return err
		}
		defer func() {
			if err := providers.Shutdown(); err != nil {
				logger.Warn("shutting down telemetry failed", slog.String("error", err.Error()))
			}
		}()

		obs.contextualLogger = oteladapters.NewSlogBridgeLogger(instrumentationName, providers.LoggerProvider)
		obs.metrics = oteladapters.NewMetricsCollector(providers.MeterProvider.Meter(version))
		obs.tracing = oteladapters.NewTracingCollector(providers.TracerProvider.Tracer(version))
	}

	st, err := openStores(ctx, cfg, obs)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.AutoMigrate {
		if err := schema.Migrate(ctx, st.migrator); err != nil {
			return err
		}
		logger.Info("schema is up to date")
	}

	cal := calendar.WithOffsetMinutes(cfg.DayUTCOffsetMinutes)

	resolverOptions := []identity.Option{
		identity.WithThreshold(cfg.MatchThreshold),
		identity.WithLogger(logger),
	}
	if cfg.FeatureServiceURL != "" {
		client, err := featureclient.NewClient(cfg.FeatureServiceURL, featureclient.WithTimeout(cfg.FeatureServiceTimeout))
		if err != nil {
			return err
		}
		resolverOptions = append(resolverOptions, identity.WithFeatureExtractor(client))
	}

	resolver, err := identity.NewResolver(st.catalog, resolverOptions...)
	if err != nil {
		return err
	}

	handlers, err := buildHandlers(st, resolver, cal, obs)
	if err != nil {
		return err
	}

	app := httpapi.New(handlers,
		httpapi.WithLogger(logger),
		httpapi.WithCalendar(cal),
		httpapi.WithAccessLog(os.Stdout),
	)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.HTTPAddr), slog.String("adapter", cfg.AdapterType))
		serveErr <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
