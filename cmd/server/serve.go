package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fittrack/backend/internal/api"
	"fittrack/backend/internal/authz"
	"fittrack/backend/internal/clock"
	"fittrack/backend/internal/entitlement"
	"fittrack/backend/internal/history"
	"fittrack/backend/internal/lifecycle"
	"fittrack/backend/internal/metrics"
	"fittrack/backend/internal/service"
	"fittrack/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCommand(configPath *string) *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*configPath, seedFile)
		},
	}
	cmd.Flags().StringVar(&seedFile, "seed-plans", "", "Plan catalog (YAML) to seed before serving")
	return cmd
}

func serve(configPath, seedFile string) error {
	rt, err := loadRuntime(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = rt.log.Sync() }()
	log := rt.log.SugaredLogger
	cfg := rt.cfg
	ctx := context.Background()

	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret must be set")
	}
	loc, err := clock.LoadLocation(cfg.Policy.Timezone)
	if err != nil {
		return err
	}

	store, closeStore, err := rt.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if seedFile != "" {
		if err := seedPlansFromFile(ctx, store.PlanTypes, seedFile, log); err != nil {
			return err
		}
	}

	var archive storage.ObjectStorage
	if cfg.S3.Enabled() {
		archive, err = storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
	} else {
		log.Infow("history archive disabled: no s3.bucket_name configured")
	}

	m := metrics.New(metrics.DefaultPrefix)
	enforcer, err := authz.NewEnforcer(log)
	if err != nil {
		return fmt.Errorf("failed to initialize enforcer: %w", err)
	}
	recorder := history.NewRecorder(store, archive, m, log)
	engine := entitlement.NewEngine(store, recorder, clock.System{},
		entitlement.Config{Location: loc, MaxConflictRetries: cfg.Policy.MaxConflictRetries}, m, log)
	core := service.NewCore(authz.NewResolver(enforcer, store, m, log), engine, lifecycle.NewManager(store, recorder, log), recorder, store, log)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, api.Deps{
		JWTSecret:  cfg.JWT.Secret,
		JWTIssuer:  cfg.JWT.Issuer,
		Core:       core,
		Resources:  service.NewResources(core, store),
		Users:      service.NewUsers(core, store.Users),
		Principals: service.NewPrincipalResolver(store),
		Metrics:    m,
		Log:        log,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "address", cfg.Server.Address, "driver", cfg.Database.Driver, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-quit:
	}
	log.Infow("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Infow("server exiting")
	return nil
}
