package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/autoservice-market/internal/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqlQuerier - общее подмножество *sql.DB и *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore - реализация Store поверх встроенной базы SQLite.
// Используется для локального запуска и тестов.
type SQLiteStore struct {
	conn *sql.DB
	db   sqlQuerier
	inTx bool
}

// SQLiteDSN собирает строку подключения с включенными внешними ключами.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewSQLiteStore открывает базу по пути path. Схема должна быть уже применена.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Одно соединение: записи в SQLite все равно сериализуются.
	conn.SetMaxOpenConns(1)
	return &SQLiteStore{conn: conn, db: conn}, nil
}

func (s *SQLiteStore) Requests() ServiceRequestRepository {
	return &SQLiteRequestRepository{DB: s.db}
}

func (s *SQLiteStore) Bids() BidRepository {
	return &SQLiteBidRepository{DB: s.db}
}

func (s *SQLiteStore) Users() UserRepository {
	return &SQLiteUserRepository{DB: s.db}
}

// InTx выполняет fn в транзакции. Вложенный вызов переиспользует текущую транзакцию.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&SQLiteStore{conn: s.conn, db: tx, inTx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	if !s.inTx {
		_ = s.conn.Close()
	}
}

// mapSQLiteError переводит ошибки драйвера в ошибки предметной области.
func mapSQLiteError(err error, notFound, duplicate string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotFound(notFound)
	}
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return models.Duplicate(duplicate)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return models.NotFound(notFound)
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return models.Duplicate(duplicate)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return models.NotFound(notFound)
	}
	return err
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// affected возвращает NotFound, если запрос не затронул ни одной строки.
func affected(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NotFound(notFound)
	}
	return nil
}
