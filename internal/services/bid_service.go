package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/autoservice-market/internal/events"
	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BidService struct {
	Deps
}

// NewBidService создаёт новый экземпляр BidService.
func NewBidService(deps Deps) *BidService {
	return &BidService{Deps: deps.withDefaults()}
}

// CreateBid создает новое предложение исполнителя по открытой заявке.
func (s *BidService) CreateBid(ctx context.Context, input models.BidInput, providerID string) (*models.Bid, error) {
	if input.ServiceRequestID == "" {
		return nil, s.fail(models.Invalid("missing required fields"))
	}
	if providerID == "" {
		return nil, s.fail(models.Unauthorized("provider is not identified"))
	}
	if err := models.ValidateItems(input.Items); err != nil {
		return nil, s.fail(err)
	}
	total := models.ResolveTotal(input.TotalAmount, input.Items)
	if total <= 0 {
		return nil, s.fail(models.Invalid("total amount must be positive"))
	}

	var created *models.Bid
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		now := s.Now()
		req, err := tx.Requests().GetRequestForUpdate(ctx, input.ServiceRequestID)
		if err != nil {
			return err
		}
		if !req.Status.AcceptsBids() {
			return models.InvalidState(fmt.Sprintf("service request in status %s does not accept bids", req.Status))
		}
		if req.IsExpired(now) {
			return models.InvalidState("service request has expired")
		}
		if req.ClientID == providerID {
			return models.Forbidden("cannot bid on your own service request")
		}

		_, err = tx.Bids().FindProviderBid(ctx, req.ID, providerID)
		switch {
		case err == nil:
			return models.Duplicate("provider already placed a bid on this service request")
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		bid := &models.Bid{
			ID:               uuid.NewString(),
			ServiceRequestID: req.ID,
			ProviderID:       providerID,
			Status:           models.BidPending,
			TotalAmount:      total,
			Items:            input.Items,
			Message:          strings.TrimSpace(input.Message),
			EstimatedHours:   input.EstimatedHours,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if bid.Items == nil {
			bid.Items = []models.BidItem{}
		}
		if err := tx.Bids().CreateBid(ctx, bid); err != nil {
			return err
		}
		if _, err := tx.Requests().IncrementBidsCount(ctx, req.ID, now); err != nil {
			return err
		}
		created = bid
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.Metrics.BidsCreated.Inc()
	s.invalidate(ctx, created.ServiceRequestID)
	s.Log.Info("bid created",
		zap.String("bid_id", created.ID),
		zap.String("request_id", created.ServiceRequestID),
		zap.String("provider_id", providerID))
	s.publish(ctx, events.Event{
		Type:      events.BidCreated,
		RequestID: created.ServiceRequestID,
		BidID:     created.ID,
		ActorID:   providerID,
		Status:    string(created.Status),
	})
	return created, nil
}

// GetBid возвращает предложение автору или владельцу заявки.
func (s *BidService) GetBid(ctx context.Context, id, requesterID string) (*models.Bid, error) {
	bid, err := s.Store.Bids().GetBid(ctx, id)
	if err != nil {
		return nil, s.fail(err)
	}
	if bid.ProviderID == requesterID {
		return bid, nil
	}
	req, err := s.Store.Requests().GetRequest(ctx, bid.ServiceRequestID)
	if err != nil {
		return nil, s.fail(err)
	}
	if req.ClientID != requesterID {
		return nil, s.fail(models.Forbidden("you are not allowed to view this bid"))
	}
	return bid, nil
}

// GetBidStatus возвращает статус предложения.
func (s *BidService) GetBidStatus(ctx context.Context, id, requesterID string) (models.BidStatus, error) {
	bid, err := s.GetBid(ctx, id, requesterID)
	if err != nil {
		return "", err
	}
	return bid.Status, nil
}

// ListForRequest возвращает все предложения по заявке. Доступно только владельцу заявки.
func (s *BidService) ListForRequest(ctx context.Context, requestID, requesterID string, limit, offset int) ([]models.Bid, error) {
	req, err := s.Store.Requests().GetRequest(ctx, requestID)
	if err != nil {
		return nil, s.fail(err)
	}
	if req.ClientID != requesterID {
		return nil, s.fail(models.Forbidden("only the owner can list bids of this service request"))
	}
	return s.Store.Bids().ListRequestBids(ctx, requestID, limit, offset)
}

// ListByProvider возвращает предложения исполнителя.
func (s *BidService) ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]models.Bid, error) {
	return s.Store.Bids().ListProviderBids(ctx, providerID, limit, offset)
}

// loadOwnBid читает предложение внутри транзакции и проверяет автора.
func loadOwnBid(ctx context.Context, tx repository.Store, id, providerID string) (*models.Bid, error) {
	bid, err := tx.Bids().GetBid(ctx, id)
	if err != nil {
		return nil, err
	}
	if bid.ProviderID != providerID {
		return nil, models.Forbidden("only the author can change this bid")
	}
	return bid, nil
}

// UpdateBid меняет сумму, смету или сообщение ожидающего предложения.
func (s *BidService) UpdateBid(ctx context.Context, id string, patch models.BidPatch, providerID string) (*models.Bid, error) {
	if patch.IsEmpty() {
		return nil, s.fail(models.Invalid("nothing to update"))
	}
	if patch.Items != nil {
		if err := models.ValidateItems(*patch.Items); err != nil {
			return nil, s.fail(err)
		}
	}

	var updated *models.Bid
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		bid, err := loadOwnBid(ctx, tx, id, providerID)
		if err != nil {
			return err
		}
		if bid.Status != models.BidPending {
			return models.InvalidState(fmt.Sprintf("bid in status %s cannot be edited", bid.Status))
		}

		if patch.Items != nil {
			bid.Items = *patch.Items
		}
		switch {
		case patch.TotalAmount != nil:
			bid.TotalAmount = models.ResolveTotal(*patch.TotalAmount, bid.Items)
		case patch.Items != nil && len(bid.Items) > 0:
			bid.TotalAmount = models.ItemsTotal(bid.Items)
		}
		if bid.TotalAmount <= 0 {
			return models.Invalid("total amount must be positive")
		}
		if patch.Message != nil {
			bid.Message = strings.TrimSpace(*patch.Message)
		}
		if patch.EstimatedHours != nil {
			bid.EstimatedHours = *patch.EstimatedHours
		}
		bid.UpdatedAt = s.Now()
		if err := tx.Bids().UpdateBid(ctx, bid); err != nil {
			return err
		}
		updated = bid
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.BidUpdated,
		RequestID: updated.ServiceRequestID,
		BidID:     updated.ID,
		ActorID:   providerID,
		Status:    string(updated.Status),
	})
	return updated, nil
}

// WithdrawBid отзывает ожидающее предложение. Счетчик предложений заявки не уменьшается.
func (s *BidService) WithdrawBid(ctx context.Context, id, providerID string) (*models.Bid, error) {
	var withdrawn *models.Bid
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		bid, err := loadOwnBid(ctx, tx, id, providerID)
		if err != nil {
			return err
		}
		if !bid.Status.CanTransition(models.BidWithdrawn) {
			return models.InvalidState(fmt.Sprintf("bid in status %s cannot be withdrawn", bid.Status))
		}
		now := s.Now()
		if err := tx.Bids().SetBidStatus(ctx, id, models.BidWithdrawn, now); err != nil {
			return err
		}
		bid.Status = models.BidWithdrawn
		bid.UpdatedAt = now
		withdrawn = bid
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.Log.Info("bid withdrawn", zap.String("bid_id", id), zap.String("provider_id", providerID))
	s.publish(ctx, events.Event{
		Type:      events.BidWithdrawn,
		RequestID: withdrawn.ServiceRequestID,
		BidID:     id,
		ActorID:   providerID,
		Status:    string(withdrawn.Status),
	})
	return withdrawn, nil
}

// DeleteBid удаляет ожидающее или отозванное предложение.
func (s *BidService) DeleteBid(ctx context.Context, id, providerID string) error {
	var requestID string
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		bid, err := loadOwnBid(ctx, tx, id, providerID)
		if err != nil {
			return err
		}
		if !bid.Status.Deletable() {
			return models.InvalidState(fmt.Sprintf("bid in status %s cannot be deleted", bid.Status))
		}
		requestID = bid.ServiceRequestID
		return tx.Bids().DeleteBid(ctx, id)
	})
	if err != nil {
		return s.fail(err)
	}

	s.publish(ctx, events.Event{Type: events.BidDeleted, RequestID: requestID, BidID: id, ActorID: providerID})
	return nil
}
