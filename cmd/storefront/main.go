package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/publisher"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, meterProvider, err := metrics.Init(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", zap.Error(err))
		}
	}()

	bus := events.NewBus()
	m.Attach(bus)

	if cfg.RabbitURL != "" {
		pub, err := publisher.Dial(cfg.RabbitURL, cfg.EventsExchange, logger.Named("publisher"))
		if err != nil {
			// Forwarding is optional; the storefront works without it.
			logger.Warn("order events disabled", zap.Error(err))
		} else {
			pub.Attach(bus)
			defer func() {
				if err := pub.Close(); err != nil {
					logger.Warn("publisher close", zap.Error(err))
				}
			}()
		}
	}

	// Shared HTTP client: cookie jar + otel transport
	sharedHTTP := clients.NewHTTPClient(cfg.UpstreamTimeout)
	apiBase := clients.NewClient("storefront-api", cfg.APIURL, sharedHTTP,
		clients.WithLogger(logger.Named("api")),
		clients.WithObserver(m),
		clients.WithBreaker(cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout),
	)

	session := storefront.New(storefront.Deps{
		Catalog: clients.NewCatalogClient(apiBase),
		Orders:  clients.NewOrderClient(apiBase),
		Auth:    clients.NewAuthClient(apiBase),
		Bus:     bus,
		Logger:  logger,
	})
	if err := session.Start(ctx); err != nil {
		logger.Warn("initial catalog load failed", zap.Error(err))
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:           logger.Named("http"),
		Session:          session,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		API:              apiBase,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("api_url", cfg.APIURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}
