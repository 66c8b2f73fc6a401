package repository

import (
	"context"
	"errors"

	"github.com/senyabanana/autoservice-market/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier - общее подмножество *pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner - строка результата (pgx.Row, pgx.Rows, *sql.Row, *sql.Rows).
type scanner interface {
	Scan(dest ...any) error
}

// PostgresStore - реализация Store поверх пула соединений PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   querier
	inTx bool
}

// NewPostgresStore создает новый экземпляр PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

func (s *PostgresStore) Requests() ServiceRequestRepository {
	return &PostgresRequestRepository{DB: s.db}
}

func (s *PostgresStore) Bids() BidRepository {
	return &PostgresBidRepository{DB: s.db}
}

func (s *PostgresStore) Users() UserRepository {
	return &PostgresUserRepository{DB: s.db}
}

// InTx выполняет fn в транзакции. Вложенный вызов переиспользует текущую транзакцию.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PostgresStore{pool: s.pool, db: tx, inTx: true})
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	if !s.inTx {
		s.pool.Close()
	}
}

// Коды ошибок PostgreSQL, которые переводятся в ошибки предметной области.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
)

// mapPgError переводит ошибки драйвера в ошибки предметной области.
func mapPgError(err error, notFound, duplicate string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NotFound(notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return models.Duplicate(duplicate)
		case pgInvalidText, pgForeignKeyViolation:
			return models.NotFound(notFound)
		}
	}
	return err
}
