package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/senyabanana/autoservice-market/internal/models"
)

// SQLiteBidRepository - реализация BidRepository для SQLite.
type SQLiteBidRepository struct {
	DB sqlQuerier
}

func scanSQLiteBid(row scanner) (*models.Bid, error) {
	var (
		bid                  models.Bid
		items                string
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&bid.ID,
		&bid.ServiceRequestID,
		&bid.ProviderID,
		&bid.Status,
		&bid.TotalAmount,
		&items,
		&bid.Message,
		&bid.EstimatedHours,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &bid.Items); err != nil {
		return nil, fmt.Errorf("decode bid items: %w", err)
	}
	if bid.Items == nil {
		bid.Items = []models.BidItem{}
	}
	bid.CreatedAt = fromMillis(createdAt)
	bid.UpdatedAt = fromMillis(updatedAt)
	return &bid, nil
}

func encodeItems(items []models.BidItem) (string, error) {
	if items == nil {
		items = []models.BidItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode bid items: %w", err)
	}
	return string(raw), nil
}

func (r *SQLiteBidRepository) queryBids(ctx context.Context, query string, args ...any) ([]models.Bid, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		bid, err := scanSQLiteBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *bid)
	}
	return bids, rows.Err()
}

// CreateBid сохраняет новое предложение.
func (r *SQLiteBidRepository) CreateBid(ctx context.Context, bid *models.Bid) error {
	items, err := encodeItems(bid.Items)
	if err != nil {
		return err
	}
	insertQuery := `INSERT INTO bids (` + bidColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.DB.ExecContext(
		ctx,
		insertQuery,
		bid.ID,
		bid.ServiceRequestID,
		bid.ProviderID,
		string(bid.Status),
		bid.TotalAmount,
		items,
		bid.Message,
		bid.EstimatedHours,
		toMillis(bid.CreatedAt),
		toMillis(bid.UpdatedAt))
	if err != nil {
		return mapSQLiteError(err, requestNotFound, bidDuplicate)
	}
	return nil
}

// GetBid возвращает предложение по ID.
func (r *SQLiteBidRepository) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = ?`
	bid, err := scanSQLiteBid(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapSQLiteError(err, bidNotFound, "")
	}
	return bid, nil
}

// FindProviderBid возвращает предложение исполнителя по заявке.
func (r *SQLiteBidRepository) FindProviderBid(ctx context.Context, requestID, providerID string) (*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE service_request_id = ? AND provider_id = ?`
	bid, err := scanSQLiteBid(r.DB.QueryRowContext(ctx, query, requestID, providerID))
	if err != nil {
		return nil, mapSQLiteError(err, bidNotFound, "")
	}
	return bid, nil
}

// ListRequestBids возвращает список предложений по заявке.
func (r *SQLiteBidRepository) ListRequestBids(ctx context.Context, requestID string, limit, offset int) ([]models.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE service_request_id = ?
		ORDER BY total_amount, created_at
		LIMIT ? OFFSET ?`
	return r.queryBids(ctx, query, requestID, limit, offset)
}

// ListProviderBids возвращает список предложений исполнителя.
func (r *SQLiteBidRepository) ListProviderBids(ctx context.Context, providerID string, limit, offset int) ([]models.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE provider_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`
	return r.queryBids(ctx, query, providerID, limit, offset)
}

// UpdateBid сохраняет изменяемые поля предложения.
func (r *SQLiteBidRepository) UpdateBid(ctx context.Context, bid *models.Bid) error {
	items, err := encodeItems(bid.Items)
	if err != nil {
		return err
	}
	updateQuery := `
		UPDATE bids
		SET status = ?, total_amount = ?, items = ?, message = ?, estimated_hours = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.DB.ExecContext(
		ctx,
		updateQuery,
		string(bid.Status),
		bid.TotalAmount,
		items,
		bid.Message,
		bid.EstimatedHours,
		toMillis(bid.UpdatedAt),
		bid.ID)
	if err != nil {
		return fmt.Errorf("update bid: %w", mapSQLiteError(err, bidNotFound, ""))
	}
	return affected(res, bidNotFound)
}

// SetBidStatus меняет статус предложения.
func (r *SQLiteBidRepository) SetBidStatus(ctx context.Context, id string, status models.BidStatus, now time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE bids SET status = ?, updated_at = ? WHERE id = ?`, string(status), toMillis(now), id)
	if err != nil {
		return fmt.Errorf("update bid status: %w", mapSQLiteError(err, bidNotFound, ""))
	}
	return affected(res, bidNotFound)
}

// RejectOtherBids отклоняет все прочие предложения заявки.
func (r *SQLiteBidRepository) RejectOtherBids(ctx context.Context, requestID, keepID string, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE bids SET status = ?, updated_at = ?
		WHERE service_request_id = ? AND id <> ? AND status <> ?`,
		string(models.BidRejected), toMillis(now), requestID, keepID, string(models.BidRejected))
	if err != nil {
		return 0, fmt.Errorf("reject sibling bids: %w", err)
	}
	return res.RowsAffected()
}

// SetPendingBidsStatus переводит ожидающие предложения заявки в новый статус.
func (r *SQLiteBidRepository) SetPendingBidsStatus(ctx context.Context, requestID string, status models.BidStatus, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE bids SET status = ?, updated_at = ?
		WHERE service_request_id = ? AND status = ?`,
		string(status), toMillis(now), requestID, string(models.BidPending))
	if err != nil {
		return 0, fmt.Errorf("update pending bids: %w", err)
	}
	return res.RowsAffected()
}

// DeleteBid удаляет предложение.
func (r *SQLiteBidRepository) DeleteBid(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM bids WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bid: %w", mapSQLiteError(err, bidNotFound, ""))
	}
	return affected(res, bidNotFound)
}

// DeleteRequestBids удаляет все предложения заявки.
func (r *SQLiteBidRepository) DeleteRequestBids(ctx context.Context, requestID string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM bids WHERE service_request_id = ?`, requestID); err != nil {
		return fmt.Errorf("delete request bids: %w", err)
	}
	return nil
}
