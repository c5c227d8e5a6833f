package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expenserelay/internal/config"
	"expenserelay/internal/credential"
	"expenserelay/internal/httpapi"
	"expenserelay/internal/observability"
	"expenserelay/internal/relay"
	"expenserelay/internal/upstream/vertex"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	metrics := observability.NewMetrics()

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	upstreamHTTPClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: transport}
	upstreamClient := vertex.New(vertex.Endpoint{
		BaseURL:   cfg.VertexBaseURL,
		ProjectID: cfg.VertexProjectID,
		Location:  cfg.VertexLocation,
		Model:     cfg.VertexModel,
	}, upstreamHTTPClient, vertex.WithObserver(metrics.ObserveUpstream))

	credentials := newCredentialProvider(cfg, metrics)
	relayService := relay.New(credentials, upstreamClient)

	handler := httpapi.NewServer(cfg, logger, httpapi.Dependencies{
		Relay:          relayService,
		Credentials:    credentials,
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       35 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", cfg.ListenAddr,
			"function", httpapi.FunctionName,
			"project", cfg.VertexProjectID,
			"location", cfg.VertexLocation,
			"model", cfg.VertexModel,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newCredentialProvider(cfg config.Config, metrics *observability.Metrics) credential.Provider {
	if cfg.VertexToken != "" {
		return credential.WithObserver("static", credential.Static(cfg.VertexToken), metrics.ObserveCredential)
	}
	return credential.WithObserver("google", credential.NewGoogle(cfg.CredentialScopes...), metrics.ObserveCredential)
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
