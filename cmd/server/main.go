// Package main starts the in-memory ReinsDesk stub backend used for local
// development and demos.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/atinyakov/ReinsDesk/internal/config"
	"github.com/atinyakov/ReinsDesk/internal/logger"
	"github.com/atinyakov/ReinsDesk/internal/server/handler/http"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	fs := pflag.NewFlagSet("reinsdesk-server", pflag.ExitOnError)
	configFile := fs.String("config", "", "config file (yaml, json or toml)")
	fs.String("addr", "localhost:3000", "listen address")
	fs.String("jwt-secret", "", "HS256 signing secret")
	fs.Duration("token-ttl", 24*time.Hour, "token lifetime")
	fs.Int("seed", 45, "demo listings created for agent1/secret (0 disables)")
	fs.String("files-dir", "", "directory for uploaded files (in memory when empty)")
	fs.String("tls-cert", "", "server certificate (PEM); see tools/certgen")
	fs.String("tls-key", "", "server key (PEM)")
	fs.StringSlice("cors-origin", []string{"http://localhost:5173"}, "browser origin allowed to call the API (repeatable)")
	fs.String("log-level", "info", "log level")
	_ = fs.Parse(os.Args[1:])

	v := config.New()
	v.SetDefault("log.level", "info")
	if err := config.BindFlags(v, fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	options, err := config.Load(v, *configFile, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New(logger.WithFormat("json"))
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.Log.Level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := http.NewBackend(ctx, http.BackendOptions{
		JWTSecret:   options.Server.JWTSecret,
		TokenTTL:    options.Server.TokenTTL,
		Seed:        options.Server.Seed,
		FilesDir:    options.Server.FilesDir,
		CORSOrigins: options.Server.CORSOrigins,
		Logger:      zapLogger,
	})
	if err != nil {
		zapLogger.Fatal("cannot init backend", zap.Error(err))
	}

	server := &nethttp.Server{
		Addr:              options.Server.Addr,
		Handler:           backend.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	tlsOn := options.Server.TLSCert != "" && options.Server.TLSKey != ""
	zapLogger.Info("starting HTTP server",
		zap.String("addr", options.Server.Addr),
		zap.Int("seed", options.Server.Seed),
		zap.Bool("tls", tlsOn),
	)
	if tlsOn {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		err = server.ListenAndServeTLS(options.Server.TLSCert, options.Server.TLSKey)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
