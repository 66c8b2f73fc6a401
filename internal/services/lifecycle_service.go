package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/autoservice-market/internal/events"
	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/repository"

	"go.uber.org/zap"
)

// LifecycleService переводит заявку по статусам вместе с ее предложениями.
type LifecycleService struct {
	Deps
}

// NewLifecycleService создаёт новый экземпляр LifecycleService.
func NewLifecycleService(deps Deps) *LifecycleService {
	return &LifecycleService{Deps: deps.withDefaults()}
}

// AcceptBid принимает предложение и отклоняет все остальные предложения заявки.
// Все изменения выполняются в одной транзакции.
func (s *LifecycleService) AcceptBid(ctx context.Context, requestID, bidID, clientID string) (*models.ServiceRequest, error) {
	var (
		accepted *models.ServiceRequest
		rejected int64
	)
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		req, err := tx.Requests().GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.ClientID != clientID {
			return models.Forbidden("only the owner can accept bids for this service request")
		}
		if !req.Status.CanTransition(models.RequestBidAccepted) {
			return models.InvalidState(fmt.Sprintf("service request in status %s cannot accept a bid", req.Status))
		}

		bid, err := tx.Bids().GetBid(ctx, bidID)
		if err != nil {
			return err
		}
		if bid.ServiceRequestID != requestID {
			return models.NotFound("bid not found for this service request")
		}
		if !bid.Status.CanTransition(models.BidAccepted) {
			return models.InvalidState(fmt.Sprintf("bid in status %s cannot be accepted", bid.Status))
		}

		now := s.Now()
		req.Status = models.RequestBidAccepted
		req.AcceptedBidID = &bid.ID
		req.UpdatedAt = now
		if err := tx.Requests().UpdateRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.Bids().SetBidStatus(ctx, bid.ID, models.BidAccepted, now); err != nil {
			return err
		}
		rejected, err = tx.Bids().RejectOtherBids(ctx, requestID, bid.ID, now)
		if err != nil {
			return err
		}
		accepted = req
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.Metrics.BidsAccepted.Inc()
	s.invalidate(ctx, requestID)
	s.Log.Info("bid accepted",
		zap.String("request_id", requestID),
		zap.String("bid_id", bidID),
		zap.Int64("rejected", rejected))
	s.publish(ctx, events.Event{
		Type:      events.BidAccepted,
		RequestID: requestID,
		BidID:     bidID,
		ActorID:   clientID,
		Status:    string(accepted.Status),
	})
	return accepted, nil
}

// CancelRequest отменяет открытую заявку; ожидающие предложения отклоняются.
func (s *LifecycleService) CancelRequest(ctx context.Context, requestID, clientID string) (*models.ServiceRequest, error) {
	var cancelled *models.ServiceRequest
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		req, err := tx.Requests().GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.ClientID != clientID {
			return models.Forbidden("only the owner can cancel this service request")
		}
		if !req.Status.CanTransition(models.RequestCancelled) {
			return models.InvalidState(fmt.Sprintf("service request in status %s cannot be cancelled", req.Status))
		}
		now := s.Now()
		req.Status = models.RequestCancelled
		req.UpdatedAt = now
		if err := tx.Requests().UpdateRequest(ctx, req); err != nil {
			return err
		}
		if _, err := tx.Bids().SetPendingBidsStatus(ctx, requestID, models.BidRejected, now); err != nil {
			return err
		}
		cancelled = req
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.invalidate(ctx, requestID)
	s.publish(ctx, events.Event{Type: events.RequestCancelled, RequestID: requestID, ActorID: clientID, Status: string(cancelled.Status)})
	return cancelled, nil
}

// StartWork переводит заявку с принятым предложением в работу.
func (s *LifecycleService) StartWork(ctx context.Context, requestID, userID string) (*models.ServiceRequest, error) {
	return s.advance(ctx, requestID, userID, models.RequestInProgress, events.RequestStarted)
}

// CompleteWork завершает работы по заявке.
func (s *LifecycleService) CompleteWork(ctx context.Context, requestID, userID string) (*models.ServiceRequest, error) {
	return s.advance(ctx, requestID, userID, models.RequestCompleted, events.RequestCompleted)
}

// advance выполняет переход заявки, доступный клиенту и исполнителю принятого предложения.
func (s *LifecycleService) advance(ctx context.Context, requestID, userID string, to models.RequestStatus, eventType events.Type) (*models.ServiceRequest, error) {
	var updated *models.ServiceRequest
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		req, err := tx.Requests().GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := s.checkParticipant(ctx, tx, req, userID); err != nil {
			return err
		}
		if !req.Status.CanTransition(to) {
			return models.InvalidState(fmt.Sprintf("service request cannot move from %s to %s", req.Status, to))
		}
		req.Status = to
		req.UpdatedAt = s.Now()
		if err := tx.Requests().UpdateRequest(ctx, req); err != nil {
			return err
		}
		updated = req
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.invalidate(ctx, requestID)
	s.publish(ctx, events.Event{Type: eventType, RequestID: requestID, ActorID: userID, Status: string(to)})
	return updated, nil
}

// checkParticipant пропускает клиента заявки и автора принятого предложения.
func (s *LifecycleService) checkParticipant(ctx context.Context, tx repository.Store, req *models.ServiceRequest, userID string) error {
	if req.ClientID == userID {
		return nil
	}
	if req.AcceptedBidID != nil {
		bid, err := tx.Bids().GetBid(ctx, *req.AcceptedBidID)
		if err != nil {
			return err
		}
		if bid.ProviderID == userID {
			return nil
		}
	}
	return models.Forbidden("only the client or the accepted provider can change this service request")
}

// Expire отменяет просроченную открытую заявку; ожидающие предложения истекают.
// Возвращает false, если заявка уже закрыта или срок не истек.
func (s *LifecycleService) Expire(ctx context.Context, requestID string, now time.Time) (bool, error) {
	expired := false
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		req, err := tx.Requests().GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.AcceptsBids() || !req.IsExpired(now) {
			return nil
		}
		req.Status = models.RequestCancelled
		req.UpdatedAt = now
		if err := tx.Requests().UpdateRequest(ctx, req); err != nil {
			return err
		}
		if _, err := tx.Bids().SetPendingBidsStatus(ctx, requestID, models.BidExpired, now); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, s.fail(err)
	}
	if !expired {
		return false, nil
	}

	s.Metrics.RequestsExpired.Inc()
	s.invalidate(ctx, requestID)
	s.publish(ctx, events.Event{Type: events.RequestExpired, RequestID: requestID, Status: string(models.RequestCancelled), At: now})
	return true, nil
}

// ExpireOverdue закрывает все просроченные заявки пачками по batch штук.
func (s *LifecycleService) ExpireOverdue(ctx context.Context, now time.Time, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	total := 0
	for {
		ids, err := s.Store.Requests().ListExpiredRequestIDs(ctx, now, batch)
		if err != nil {
			return total, err
		}
		n := 0
		for _, id := range ids {
			ok, err := s.Expire(ctx, id, now)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				return total, err
			}
			if ok {
				n++
			}
		}
		total += n
		if len(ids) < batch || n == 0 {
			return total, nil
		}
	}
}
