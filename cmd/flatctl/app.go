package main

import (
	"context"
	"fmt"
	"os"

	"github.com/birbparty/flat-client/internal/kvstore"
	"github.com/birbparty/flat-client/internal/queue"
	"github.com/birbparty/flat-client/internal/telemetry"
	"github.com/birbparty/flat-client/sdk"
	"github.com/sirupsen/logrus"
)

// app holds everything a command needs, built once per invocation
type app struct {
	config    *sdk.Config
	store     kvstore.Store
	accounts  *sdk.KnownAccounts
	session   *sdk.SessionStore
	provider  *sdk.Provider
	main      *sdk.SerialQueue
	publisher *queue.SessionPublisher
	servers   *sdk.ServerRegistry
	logger    *logrus.Logger
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	tcfg := telemetry.NewConfigFromEnv()
	tcfg.ServiceName = "flatctl"
	if os.Getenv("LOG_LEVEL") == "" {
		tcfg.LogLevel = "warn"
	}
	if opts.verbose {
		tcfg.LogLevel = "debug"
	}
	if err := telemetry.Init(tcfg); err != nil {
		return nil, err
	}
	logger := telemetry.L()
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	kcfg, err := kvstore.NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if opts.store != "" {
		kcfg.Backend = kvstore.Backend(opts.store)
	}
	if opts.profile != "" {
		kcfg.Namespace = opts.profile
	}
	store, err := kvstore.New(ctx, kcfg, telemetry.DefaultMetrics(), logger)
	if err != nil {
		return nil, err
	}

	a := &app{store: store, logger: logger, main: sdk.NewSerialQueue(), servers: sdk.NewServerRegistry()}
	a.accounts = sdk.NewKnownAccounts(store)
	a.session = sdk.NewSessionStore(store, sdk.WithSessionLogger(logger), sdk.WithKnownAccounts(a.accounts))
	if err := a.session.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	if queue.Enabled() {
		qcfg, err := queue.NewConfigFromEnv()
		if err != nil {
			a.Close()
			return nil, err
		}
		// events are best effort, a missing broker must not block the CLI
		if a.publisher, err = queue.NewSessionPublisher(qcfg, telemetry.DefaultMetrics(), logger); err != nil {
			logger.WithError(err).Warn("Session events disabled")
		} else {
			a.session.Subscribe(a.publisher)
		}
	}

	a.config = sdk.NewConfigFromEnv().
		WithTransport(telemetry.NewTracingTransport(nil)).
		WithObserver(sdk.NewCompositeObserver(
			telemetry.NewPrometheusObserver(telemetry.DefaultMetrics()),
			telemetry.TracingObserver{},
		)).
		WithLogger(logger).
		WithMainExecutor(a.main)
	if opts.apiURL != "" {
		a.config.WithFlatBaseURL(opts.apiURL)
	}
	if a.config.FlatBaseURL != sdk.DefaultFlatBaseURL {
		// a self hosted server owns every room
		a.servers = sdk.NewServerRegistry(sdk.Server{Region: "custom", BaseURL: a.config.FlatBaseURL})
	}

	a.provider, err = sdk.NewProvider(a.config, a.session)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases resources in reverse order of creation. The main queue is
// closed after the provider so a pending expiry logout still runs.
func (a *app) Close() {
	if a.provider != nil {
		_ = a.provider.Close()
	}
	a.main.Close()
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close session storage")
	}
	_ = telemetry.Shutdown(context.Background())
}
