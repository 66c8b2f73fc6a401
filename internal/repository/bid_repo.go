package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/senyabanana/autoservice-market/internal/models"
)

const bidColumns = `id, service_request_id, provider_id, status, total_amount, items, message, estimated_hours, created_at, updated_at`

const (
	bidNotFound  = "bid not found"
	bidDuplicate = "provider already placed a bid on this service request"
)

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB querier
}

func scanBid(row scanner) (*models.Bid, error) {
	var bid models.Bid
	err := row.Scan(
		&bid.ID,
		&bid.ServiceRequestID,
		&bid.ProviderID,
		&bid.Status,
		&bid.TotalAmount,
		&bid.Items,
		&bid.Message,
		&bid.EstimatedHours,
		&bid.CreatedAt,
		&bid.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if bid.Items == nil {
		bid.Items = []models.BidItem{}
	}
	return &bid, nil
}

func (r *PostgresBidRepository) queryBids(ctx context.Context, query string, args ...any) ([]models.Bid, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *bid)
	}
	return bids, rows.Err()
}

// CreateBid сохраняет новое предложение.
func (r *PostgresBidRepository) CreateBid(ctx context.Context, bid *models.Bid) error {
	if bid.Items == nil {
		bid.Items = []models.BidItem{}
	}
	insertQuery := `INSERT INTO bids (` + bidColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		bid.ID,
		bid.ServiceRequestID,
		bid.ProviderID,
		bid.Status,
		bid.TotalAmount,
		bid.Items,
		bid.Message,
		bid.EstimatedHours,
		bid.CreatedAt,
		bid.UpdatedAt)
	if err != nil {
		return mapPgError(err, requestNotFound, bidDuplicate)
	}
	return nil
}

// GetBid возвращает предложение по ID.
func (r *PostgresBidRepository) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`
	bid, err := scanBid(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err, bidNotFound, "")
	}
	return bid, nil
}

// FindProviderBid возвращает предложение исполнителя по заявке.
func (r *PostgresBidRepository) FindProviderBid(ctx context.Context, requestID, providerID string) (*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE service_request_id = $1 AND provider_id = $2`
	bid, err := scanBid(r.DB.QueryRow(ctx, query, requestID, providerID))
	if err != nil {
		return nil, mapPgError(err, bidNotFound, "")
	}
	return bid, nil
}

// ListRequestBids возвращает список предложений по заявке.
func (r *PostgresBidRepository) ListRequestBids(ctx context.Context, requestID string, limit, offset int) ([]models.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE service_request_id = $1
		ORDER BY total_amount, created_at
		LIMIT $2 OFFSET $3`
	return r.queryBids(ctx, query, requestID, limit, offset)
}

// ListProviderBids возвращает список предложений исполнителя.
func (r *PostgresBidRepository) ListProviderBids(ctx context.Context, providerID string, limit, offset int) ([]models.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE provider_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`
	return r.queryBids(ctx, query, providerID, limit, offset)
}

// UpdateBid сохраняет изменяемые поля предложения.
func (r *PostgresBidRepository) UpdateBid(ctx context.Context, bid *models.Bid) error {
	if bid.Items == nil {
		bid.Items = []models.BidItem{}
	}
	updateQuery := `
		UPDATE bids
		SET status = $2, total_amount = $3, items = $4, message = $5, estimated_hours = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.DB.Exec(
		ctx,
		updateQuery,
		bid.ID,
		bid.Status,
		bid.TotalAmount,
		bid.Items,
		bid.Message,
		bid.EstimatedHours,
		bid.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update bid: %w", mapPgError(err, bidNotFound, ""))
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound(bidNotFound)
	}
	return nil
}

// SetBidStatus меняет статус предложения.
func (r *PostgresBidRepository) SetBidStatus(ctx context.Context, id string, status models.BidStatus, now time.Time) error {
	tag, err := r.DB.Exec(ctx, `UPDATE bids SET status = $1, updated_at = $2 WHERE id = $3`, status, now, id)
	if err != nil {
		return fmt.Errorf("update bid status: %w", mapPgError(err, bidNotFound, ""))
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound(bidNotFound)
	}
	return nil
}

// RejectOtherBids отклоняет все прочие предложения заявки.
func (r *PostgresBidRepository) RejectOtherBids(ctx context.Context, requestID, keepID string, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE bids SET status = $1, updated_at = $2
		WHERE service_request_id = $3 AND id <> $4 AND status <> $1`,
		models.BidRejected, now, requestID, keepID)
	if err != nil {
		return 0, fmt.Errorf("reject sibling bids: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetPendingBidsStatus переводит ожидающие предложения заявки в новый статус.
func (r *PostgresBidRepository) SetPendingBidsStatus(ctx context.Context, requestID string, status models.BidStatus, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE bids SET status = $1, updated_at = $2
		WHERE service_request_id = $3 AND status = $4`,
		status, now, requestID, models.BidPending)
	if err != nil {
		return 0, fmt.Errorf("update pending bids: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteBid удаляет предложение.
func (r *PostgresBidRepository) DeleteBid(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM bids WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bid: %w", mapPgError(err, bidNotFound, ""))
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound(bidNotFound)
	}
	return nil
}

// DeleteRequestBids удаляет все предложения заявки.
func (r *PostgresBidRepository) DeleteRequestBids(ctx context.Context, requestID string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM bids WHERE service_request_id = $1`, requestID); err != nil {
		return fmt.Errorf("delete request bids: %w", err)
	}
	return nil
}
