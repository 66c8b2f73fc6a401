package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/autoservice-market/internal/models"
)

const (
	userColumns   = `id, email, name, role, password_hash, created_at`
	userNotFound  = "user not found"
	userDuplicate = "email is already registered"
)

// PostgresUserRepository - реализация UserRepository для базы данных.
type PostgresUserRepository struct {
	DB querier
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser сохраняет нового пользователя.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.Exec(ctx, query, user.ID, user.Email, user.Name, user.Role, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapPgError(err, userNotFound, userDuplicate))
	}
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, mapPgError(err, userNotFound, "")
	}
	return user, nil
}

// GetUser возвращает пользователя по ID.
func (r *PostgresUserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapPgError(err, userNotFound, "")
	}
	return user, nil
}
