package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/autoservice-market/internal/events"
	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RequestService struct {
	Deps
	TTL time.Duration
}

// NewRequestService создаёт новый экземпляр RequestService.
func NewRequestService(deps Deps, ttl time.Duration) *RequestService {
	if ttl <= 0 {
		ttl = models.RequestTTL
	}
	return &RequestService{Deps: deps.withDefaults(), TTL: ttl}
}

// CreateRequest создает новую заявку клиента.
func (s *RequestService) CreateRequest(ctx context.Context, input models.ServiceRequestInput, clientID string) (*models.ServiceRequest, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" || input.Description == "" || input.ServiceType == "" {
		return nil, s.fail(models.Invalid("missing required fields"))
	}
	if !models.ValidServiceType(input.ServiceType) {
		return nil, s.fail(models.Invalid(fmt.Sprintf("unsupported service type: %s", input.ServiceType)))
	}
	if clientID == "" {
		return nil, s.fail(models.Unauthorized("client is not identified"))
	}

	now := s.Now()
	req := &models.ServiceRequest{
		ID:           uuid.NewString(),
		ClientID:     clientID,
		Title:        input.Title,
		Description:  input.Description,
		ServiceType:  input.ServiceType,
		VehicleMake:  input.VehicleMake,
		VehicleModel: input.VehicleModel,
		VehicleYear:  input.VehicleYear,
		Location:     input.Location,
		Status:       models.RequestPending,
		BidsCount:    0,
		ExpiresAt:    now.Add(s.TTL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Requests().CreateRequest(ctx, req); err != nil {
		return nil, s.fail(err)
	}

	s.Log.Info("service request created", zap.String("request_id", req.ID), zap.String("client_id", clientID))
	s.publish(ctx, events.Event{Type: events.RequestCreated, RequestID: req.ID, ActorID: clientID, Status: string(req.Status)})
	return req, nil
}

// GetRequest возвращает заявку по ID, сначала из кэша.
func (s *RequestService) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	if cached, ok, err := s.Cache.Get(ctx, id); err != nil {
		s.Log.Warn("read cached request", zap.String("request_id", id), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	req, err := s.Store.Requests().GetRequest(ctx, id)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.Cache.Set(ctx, req); err != nil {
		s.Log.Warn("cache request", zap.String("request_id", id), zap.Error(err))
	}
	return req, nil
}

// ListAvailable возвращает открытые заявки, по которым можно подать предложение.
func (s *RequestService) ListAvailable(ctx context.Context, serviceTypes []string, limit, offset int) ([]models.ServiceRequest, error) {
	for _, serviceType := range serviceTypes {
		if !models.ValidServiceType(models.ServiceType(serviceType)) {
			return nil, s.fail(models.Invalid(fmt.Sprintf("unsupported service type: %s", serviceType)))
		}
	}
	return s.Store.Requests().ListRequests(ctx, repository.RequestFilter{
		Statuses:     models.AvailableStatuses(),
		ServiceTypes: serviceTypes,
		OpenAt:       s.Now(),
		Limit:        limit,
		Offset:       offset,
	})
}

// ListByClient возвращает заявки клиента. Если statuses заданы, только в этих статусах.
func (s *RequestService) ListByClient(ctx context.Context, clientID string, statuses []string, limit, offset int) ([]models.ServiceRequest, error) {
	filter := repository.RequestFilter{
		ClientID: clientID,
		Limit:    limit,
		Offset:   offset,
	}
	for _, raw := range statuses {
		status, ok := models.ParseRequestStatus(raw)
		if !ok {
			return nil, s.fail(models.Invalid(fmt.Sprintf("unknown service request status: %s", raw)))
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	return s.Store.Requests().ListRequests(ctx, filter)
}

// UpdateRequest меняет описательные поля заявки. Статус через этот метод не меняется.
func (s *RequestService) UpdateRequest(ctx context.Context, id string, patch models.ServiceRequestPatch, requesterID string) (*models.ServiceRequest, error) {
	if patch.IsEmpty() {
		return nil, s.fail(models.Invalid("nothing to update"))
	}
	if patch.ServiceType != nil && !models.ValidServiceType(*patch.ServiceType) {
		return nil, s.fail(models.Invalid(fmt.Sprintf("unsupported service type: %s", *patch.ServiceType)))
	}
	if (patch.Title != nil && strings.TrimSpace(*patch.Title) == "") ||
		(patch.Description != nil && strings.TrimSpace(*patch.Description) == "") {
		return nil, s.fail(models.Invalid("title and description cannot be empty"))
	}

	var updated *models.ServiceRequest
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		req, err := tx.Requests().GetRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.ClientID != requesterID {
			return models.Forbidden("only the owner can edit this service request")
		}
		if !req.Status.Editable() {
			return models.InvalidState(fmt.Sprintf("service request in status %s cannot be edited", req.Status))
		}
		patch.Apply(req)
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

	s.invalidate(ctx, id)
	s.publish(ctx, events.Event{Type: events.RequestUpdated, RequestID: id, ActorID: requesterID, Status: string(updated.Status)})
	return updated, nil
}

// DeleteRequest удаляет заявку вместе с предложениями.
func (s *RequestService) DeleteRequest(ctx context.Context, id, requesterID string) error {
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		req, err := tx.Requests().GetRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.ClientID != requesterID {
			return models.Forbidden("only the owner can delete this service request")
		}
		if !req.Status.Deletable() {
			return models.InvalidState(fmt.Sprintf("service request in status %s cannot be deleted", req.Status))
		}
		if err := tx.Bids().DeleteRequestBids(ctx, id); err != nil {
			return err
		}
		return tx.Requests().DeleteRequest(ctx, id)
	})
	if err != nil {
		return s.fail(err)
	}

	s.invalidate(ctx, id)
	s.Log.Info("service request deleted", zap.String("request_id", id))
	s.publish(ctx, events.Event{Type: events.RequestDeleted, RequestID: id, ActorID: requesterID})
	return nil
}
