package main

import (
	"context"
	"fmt"
	"time"

	"fittrack/backend/internal/config"
	"fittrack/backend/internal/repository"
	"fittrack/backend/internal/repository/memory"
	mongorepo "fittrack/backend/internal/repository/mongo"
	"fittrack/backend/pkg/logger"
)

// runtime is what every command needs: configuration and a logger.
type runtime struct {
	cfg config.Config
	log *logger.Logger
}

func loadRuntime(configPath string) (*runtime, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &runtime{cfg: cfg, log: log}, nil
}

// openStore connects the configured backend. The returned close function
// must be called on shutdown.
func (rt *runtime) openStore(ctx context.Context) (*repository.Store, func(), error) {
	log := rt.log.SugaredLogger

	if rt.cfg.Database.Driver == config.DriverMemory {
		log.Warnw("using the in-memory datastore; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	}

	client, err := mongorepo.ConnectDB(rt.cfg.Database.URI)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to MongoDB: %w", err)
	}
	closeFn := func() {
		log.Infow("disconnecting MongoDB")
		if err := mongorepo.DisconnectDB(client); err != nil {
			log.Errorw("failed to disconnect MongoDB", "error", err)
		}
	}

	db := client.Database(rt.cfg.Database.Name)
	indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := mongorepo.EnsureIndexes(indexCtx, db, log); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("could not ensure indexes: %w", err)
	}

	log.Infow("database connection established", "database", rt.cfg.Database.Name)
	return mongorepo.NewStore(client, db), closeFn, nil
}
