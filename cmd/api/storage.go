package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gocomet/parcel-pickup/internal/config"
	"github.com/gocomet/parcel-pickup/internal/domain/rating"
	"github.com/gocomet/parcel-pickup/internal/domain/task"
	"github.com/gocomet/parcel-pickup/internal/domain/user"
	"github.com/gocomet/parcel-pickup/internal/repository/postgres"
	"github.com/gocomet/parcel-pickup/internal/repository/sqlite"
	"github.com/gocomet/parcel-pickup/pkg/database"
	"github.com/gocomet/parcel-pickup/pkg/monitoring"
)

// storage bundles the repositories of the configured backend
type storage struct {
	users   user.Repository
	tasks   task.Repository
	ratings rating.Repository
	pool    *sql.DB
}

// ping checks the pool and reports its stats
func (s *storage) ping(nr *monitoring.NewRelicApp) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := s.pool.PingContext(ctx); err != nil {
			return err
		}
		stats := s.pool.Stats()
		nr.RecordDatabasePoolStats(stats.OpenConnections, stats.InUse, stats.Idle)
		return nil
	}
}

func (s *storage) close() error {
	return s.pool.Close()
}

// openStorage connects to the configured backend and applies its schema
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.Name,
			SSLMode:     cfg.Database.SSLMode,
			MaxConns:    cfg.Database.MaxConnections,
			MaxIdle:     cfg.Database.MaxIdleConns,
			MaxLifetime: cfg.Database.MaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &storage{
			users:   postgres.NewUserRepository(db),
			tasks:   postgres.NewTaskRepository(db),
			ratings: postgres.NewRatingRepository(db),
			pool:    db,
		}, nil

	case config.DriverSQLite:
		gdb, err := database.NewSQLiteDB(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		pool, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
		}
		if err := sqlite.Migrate(gdb); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
		return &storage{
			users:   sqlite.NewUserRepository(gdb),
			tasks:   sqlite.NewTaskRepository(gdb),
			ratings: sqlite.NewRatingRepository(gdb),
			pool:    pool,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
