package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/autoservice-market/internal/models"

	"github.com/lib/pq"
)

const requestColumns = `id, client_id, title, description, service_type, vehicle_make, vehicle_model, vehicle_year,
	location, status, bids_count, accepted_bid_id, expires_at, created_at, updated_at`

const requestNotFound = "service request not found"

// PostgresRequestRepository - реализация ServiceRequestRepository для базы данных.
type PostgresRequestRepository struct {
	DB querier
}

func scanRequest(row scanner) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
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
		&req.AcceptedBidID,
		&req.ExpiresAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateRequest сохраняет новую заявку.
func (r *PostgresRequestRepository) CreateRequest(ctx context.Context, req *models.ServiceRequest) error {
	insertQuery := `INSERT INTO service_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		req.ID,
		req.ClientID,
		req.Title,
		req.Description,
		req.ServiceType,
		req.VehicleMake,
		req.VehicleModel,
		req.VehicleYear,
		req.Location,
		req.Status,
		req.BidsCount,
		req.AcceptedBidID,
		req.ExpiresAt,
		req.CreatedAt,
		req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert service request: %w", mapPgError(err, "client not found", "service request already exists"))
	}
	return nil
}

// GetRequest возвращает заявку по ID.
func (r *PostgresRequestRepository) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id = $1`
	req, err := scanRequest(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err, requestNotFound, "")
	}
	return req, nil
}

// GetRequestForUpdate возвращает заявку и блокирует строку до конца транзакции.
func (r *PostgresRequestRepository) GetRequestForUpdate(ctx context.Context, id string) (*models.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id = $1 FOR UPDATE`
	req, err := scanRequest(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err, requestNotFound, "")
	}
	return req, nil
}

// ListRequests возвращает список заявок по фильтру.
func (r *PostgresRequestRepository) ListRequests(ctx context.Context, filter RequestFilter) ([]models.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests`
	var filters []string
	var args []interface{}
	argIndex := 1

	if filter.ClientID != "" {
		filters = append(filters, fmt.Sprintf("client_id = $%d", argIndex))
		args = append(args, filter.ClientID)
		argIndex++
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		filters = append(filters, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	if len(filter.ServiceTypes) > 0 {
		filters = append(filters, fmt.Sprintf("service_type = ANY($%d)", argIndex))
		args = append(args, pq.Array(filter.ServiceTypes))
		argIndex++
	}

	if !filter.OpenAt.IsZero() {
		filters = append(filters, fmt.Sprintf("expires_at > $%d", argIndex))
		args = append(args, filter.OpenAt)
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list service requests: %w", err)
	}
	defer rows.Close()

	requests := []models.ServiceRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// UpdateRequest сохраняет изменяемые поля заявки.
func (r *PostgresRequestRepository) UpdateRequest(ctx context.Context, req *models.ServiceRequest) error {
	updateQuery := `
		UPDATE service_requests
		SET title = $2, description = $3, service_type = $4, vehicle_make = $5, vehicle_model = $6,
		    vehicle_year = $7, location = $8, status = $9, accepted_bid_id = $10, updated_at = $11
		WHERE id = $1`
	tag, err := r.DB.Exec(
		ctx,
		updateQuery,
		req.ID,
		req.Title,
		req.Description,
		req.ServiceType,
		req.VehicleMake,
		req.VehicleModel,
		req.VehicleYear,
		req.Location,
		req.Status,
		req.AcceptedBidID,
		req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update service request: %w", mapPgError(err, requestNotFound, ""))
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound(requestNotFound)
	}
	return nil
}

// IncrementBidsCount увеличивает счетчик предложений; PENDING переходит в RECEIVING_BIDS.
func (r *PostgresRequestRepository) IncrementBidsCount(ctx context.Context, id string, now time.Time) (*models.ServiceRequest, error) {
	query := `
		UPDATE service_requests
		SET bids_count = bids_count + 1,
		    status = CASE WHEN status = 'PENDING' THEN 'RECEIVING_BIDS' ELSE status END,
		    updated_at = $2
		WHERE id = $1
		RETURNING ` + requestColumns
	req, err := scanRequest(r.DB.QueryRow(ctx, query, id, now))
	if err != nil {
		return nil, mapPgError(err, requestNotFound, "")
	}
	return req, nil
}

// DeleteRequest удаляет заявку.
func (r *PostgresRequestRepository) DeleteRequest(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM service_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service request: %w", mapPgError(err, requestNotFound, ""))
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound(requestNotFound)
	}
	return nil
}

// ListExpiredRequestIDs возвращает открытые заявки с истекшим сроком.
func (r *PostgresRequestRepository) ListExpiredRequestIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `
		SELECT id FROM service_requests
		WHERE status IN ('PENDING', 'RECEIVING_BIDS') AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`
	rows, err := r.DB.Query(ctx, query, now, limit)
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
