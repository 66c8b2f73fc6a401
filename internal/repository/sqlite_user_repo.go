package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/autoservice-market/internal/models"
)

// SQLiteUserRepository - реализация UserRepository для SQLite.
type SQLiteUserRepository struct {
	DB sqlQuerier
}

func scanSQLiteUser(row scanner) (*models.User, error) {
	var (
		user      models.User
		createdAt int64
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &createdAt); err != nil {
		return nil, err
	}
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}

// CreateUser сохраняет нового пользователя.
func (r *SQLiteUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.DB.ExecContext(ctx, query, user.ID, user.Email, user.Name, string(user.Role), user.PasswordHash, toMillis(user.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", mapSQLiteError(err, userNotFound, userDuplicate))
	}
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *SQLiteUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanSQLiteUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, mapSQLiteError(err, userNotFound, "")
	}
	return user, nil
}

// GetUser возвращает пользователя по ID.
func (r *SQLiteUserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := scanSQLiteUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, mapSQLiteError(err, userNotFound, "")
	}
	return user, nil
}
