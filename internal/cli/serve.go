package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/meshline/datashelf/internal/api"
	"github.com/meshline/datashelf/internal/config"
	"github.com/meshline/datashelf/internal/registry"
	"github.com/meshline/datashelf/internal/shapes"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  "Serve the dynamic CRUD surface over the built-in record shapes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.dataDir != "" {
		cfg.Storage.DataDir = flags.dataDir
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	backend, err := cfg.OpenBackend()
	if err != nil {
		return fmt.Errorf("opening storage backend: %w", err)
	}
	defer backend.Close()

	reg := registry.New()
	if err := shapes.Register(reg, backend); err != nil {
		return fmt.Errorf("registering shapes: %w", err)
	}

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.RequestLog(log))
	r.Use(api.CORS())
	api.NewHandler(reg, log).Register(r)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr, "backend", cfg.Storage.Backend)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
