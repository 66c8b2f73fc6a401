package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/senyabanana/autoservice-market/internal/repository"
	"github.com/senyabanana/autoservice-market/internal/router/config"
	"github.com/senyabanana/autoservice-market/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InitDb инициализирует подключение к базе данных и возвращает пул соединений.
func InitDb(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	databaseUrl := cfg.PostgresDSN()
	if databaseUrl == "" {
		return nil, fmt.Errorf("one or more database connection environment variables are missing")
	}

	dbPool, err := pgxpool.New(ctx, databaseUrl)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	return dbPool, nil
}

// Migrate применяет встроенные миграции к выбранному хранилищу.
func Migrate(cfg config.Config) error {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		return runMigration("postgres", cfg.PostgresDSN())
	case config.DriverSQLite:
		return runMigration("sqlite", "sqlite://"+cfg.SQLitePath)
	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func runMigration(dir, databaseURL string) error {
	source, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	migration, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("cannot create a new migrate instance: %w", err)
	}
	defer migration.Close()

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrate up: %w", err)
	}
	return nil
}

// OpenSQLite применяет миграции к файлу path и открывает хранилище.
func OpenSQLite(path string) (*repository.SQLiteStore, error) {
	if err := runMigration("sqlite", "sqlite://"+path); err != nil {
		return nil, err
	}
	return repository.NewSQLiteStore(path)
}

// Open открывает хранилище, выбранное в конфигурации. Миграции не применяются.
func Open(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := InitDb(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresStore(pool), nil
	case config.DriverSQLite:
		return repository.NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
