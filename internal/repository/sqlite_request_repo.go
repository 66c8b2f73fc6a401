package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/autoservice-market/internal/models"
)

// SQLiteRequestRepository - реализация ServiceRequestRepository для SQLite.
type SQLiteRequestRepository struct {
	DB sqlQuerier
}

func scanSQLiteRequest(row scanner) (*models.ServiceRequest, error) {
	var (
		req                             models.ServiceRequest
		acceptedBidID                   sql.NullString
		expiresAt, createdAt, updatedAt int64
	)
	err := row.Scan(
		&req.ID,
		&req.ClientID,
		&req.Title,
		&req.Description,
		&req.ServiceType,
		&req.VehicleMake,
		&req.VehicleModel,
		&req.VehicleYear,
		&req.Location,
		&req.Status,
		&req.BidsCount,
		&acceptedBidID,
		&expiresAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if acceptedBidID.Valid {
		req.AcceptedBidID = &acceptedBidID.String
	}
	req.ExpiresAt = fromMillis(expiresAt)
	req.CreatedAt = fromMillis(createdAt)
	req.UpdatedAt = fromMillis(updatedAt)
	return &req, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// placeholders возвращает "?, ?, ?" для n аргументов.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// CreateRequest сохраняет новую заявку.
func (r *SQLiteRequestRepository) CreateRequest(ctx context.Context, req *models.ServiceRequest) error {
	insertQuery := `INSERT INTO service_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.DB.ExecContext(
		ctx,
		insertQuery,
		req.ID,
		req.ClientID,
		req.Title,
		req.Description,
		string(req.ServiceType),
		req.VehicleMake,
		req.VehicleModel,
		req.VehicleYear,
		req.Location,
		string(req.Status),
		req.BidsCount,
		nullString(req.AcceptedBidID),
		toMillis(req.ExpiresAt),
		toMillis(req.CreatedAt),
		toMillis(req.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert service request: %w", mapSQLiteError(err, "client not found", "service request already exists"))
	}
	return nil
}

// GetRequest возвращает заявку по ID.
func (r *SQLiteRequestRepository) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id = ?`
	req, err := scanSQLiteRequest(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapSQLiteError(err, requestNotFound, "")
	}
	return req, nil
}

// GetRequestForUpdate в SQLite равен GetRequest: транзакции и так сериализованы одним соединением.
func (r *SQLiteRequestRepository) GetRequestForUpdate(ctx context.Context, id string) (*models.ServiceRequest, error) {
	return r.GetRequest(ctx, id)
}

// ListRequests возвращает список заявок по фильтру.
func (r *SQLiteRequestRepository) ListRequests(ctx context.Context, filter RequestFilter) ([]models.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests`
	var filters []string
	var args []any

	if filter.ClientID != "" {
		filters = append(filters, "client_id = ?")
		args = append(args, filter.ClientID)
	}

	if len(filter.Statuses) > 0 {
		filters = append(filters, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, string(s))
		}
	}

	if len(filter.ServiceTypes) > 0 {
		filters = append(filters, "service_type IN ("+placeholders(len(filter.ServiceTypes))+")")
		for _, t := range filter.ServiceTypes {
			args = append(args, t)
		}
	}

	if !filter.OpenAt.IsZero() {
		filters = append(filters, "expires_at > ?")
		args = append(args, toMillis(filter.OpenAt))
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list service requests: %w", err)
	}
	defer rows.Close()

	requests := []models.ServiceRequest{}
	for rows.Next() {
		req, err := scanSQLiteRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// UpdateRequest сохраняет изменяемые поля заявки.
func (r *SQLiteRequestRepository) UpdateRequest(ctx context.Context, req *models.ServiceRequest) error {
	updateQuery := `
		UPDATE service_requests
		SET title = ?, description = ?, service_type = ?, vehicle_make = ?, vehicle_model = ?,
		    vehicle_year = ?, location = ?, status = ?, accepted_bid_id = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.DB.ExecContext(
		ctx,
		updateQuery,
		req.Title,
		req.Description,
		string(req.ServiceType),
		req.VehicleMake,
		req.VehicleModel,
		req.VehicleYear,
		req.Location,
		string(req.Status),
		nullString(req.AcceptedBidID),
		toMillis(req.UpdatedAt),
		req.ID)
	if err != nil {
		return fmt.Errorf("update service request: %w", mapSQLiteError(err, requestNotFound, ""))
	}
	return affected(res, requestNotFound)
}

// IncrementBidsCount увеличивает счетчик предложений; PENDING переходит в RECEIVING_BIDS.
func (r *SQLiteRequestRepository) IncrementBidsCount(ctx context.Context, id string, now time.Time) (*models.ServiceRequest, error) {
	query := `
		UPDATE service_requests
		SET bids_count = bids_count + 1,
		    status = CASE WHEN status = 'PENDING' THEN 'RECEIVING_BIDS' ELSE status END,
		    updated_at = ?
		WHERE id = ?
		RETURNING ` + requestColumns
	req, err := scanSQLiteRequest(r.DB.QueryRowContext(ctx, query, toMillis(now), id))
	if err != nil {
		return nil, mapSQLiteError(err, requestNotFound, "")
	}
	return req, nil
}

// DeleteRequest удаляет заявку.
func (r *SQLiteRequestRepository) DeleteRequest(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM service_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete service request: %w", mapSQLiteError(err, requestNotFound, ""))
	}
	return affected(res, requestNotFound)
}

// ListExpiredRequestIDs возвращает открытые заявки с истекшим сроком.
func (r *SQLiteRequestRepository) ListExpiredRequestIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `
		SELECT id FROM service_requests
		WHERE status IN ('PENDING', 'RECEIVING_BIDS') AND expires_at <= ?
		ORDER BY expires_at
		LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, query, toMillis(now), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired service requests: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
