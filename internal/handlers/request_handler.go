package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/services"
	"github.com/senyabanana/autoservice-market/internal/utils"

	"go.uber.org/zap"
)

// RequestHandler - структура для обработки HTTP-запросов по заявкам.
type RequestHandler struct {
	Service   *services.RequestService
	Lifecycle *services.LifecycleService
	Logger    *zap.Logger
	Timeout   time.Duration
}

// NewRequestHandler создаёт новый экземпляр RequestHandler.
func NewRequestHandler(service *services.RequestService, lifecycle *services.LifecycleService, logger *zap.Logger, timeout time.Duration) *RequestHandler {
	return &RequestHandler{
		Service:   service,
		Lifecycle: lifecycle,
		Logger:    logger,
		Timeout:   timeout,
	}
}

// GetAvailableRequests возвращает открытые заявки для исполнителей.
func (h *RequestHandler) GetAvailableRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	serviceTypes := r.URL.Query()["serviceType"]

	requests, err := h.Service.ListAvailable(ctx, serviceTypes, limit, offset)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch service requests")
		return
	}
	utils.SendJSON(w, http.StatusOK, requests)
}

// CreateRequest обрабатывает запросы для создания заявки.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var input models.ServiceRequestInput
	if !decodeBody(w, r, &input) {
		return
	}

	req, err := h.Service.CreateRequest(ctx, input, user.UserID)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to create service request")
		return
	}
	utils.SendJSON(w, http.StatusCreated, req)
}

// GetMyRequests возвращает заявки текущего клиента, с фильтром ?status=.
func (h *RequestHandler) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	statuses := r.URL.Query()["status"]

	requests, err := h.Service.ListByClient(ctx, user.UserID, statuses, limit, offset)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch service requests")
		return
	}
	utils.SendJSON(w, http.StatusOK, requests)
}

// GetRequest возвращает заявку по ID.
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "requestId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	req, err := h.Service.GetRequest(ctx, requestID)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch service request")
		return
	}
	utils.SendJSON(w, http.StatusOK, req)
}

// EditRequest обрабатывает запросы для редактирования заявки.
func (h *RequestHandler) EditRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "requestId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var patch models.ServiceRequestPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	req, err := h.Service.UpdateRequest(ctx, requestID, patch, user.UserID)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to update service request")
		return
	}
	utils.SendJSON(w, http.StatusOK, req)
}

// DeleteRequest обрабатывает запросы для удаления заявки.
func (h *RequestHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "requestId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.DeleteRequest(ctx, requestID, user.UserID); err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to delete service request")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelRequest обрабатывает запросы для отмены заявки.
func (h *RequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.CancelRequest, "failed to cancel service request")
}

// StartWork обрабатывает запросы для начала работ по заявке.
func (h *RequestHandler) StartWork(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.StartWork, "failed to start work")
}

// CompleteWork обрабатывает запросы для завершения работ по заявке.
func (h *RequestHandler) CompleteWork(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.CompleteWork, "failed to complete work")
}

type transitionFunc func(ctx context.Context, requestID, userID string) (*models.ServiceRequest, error)

func (h *RequestHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc, fallback string) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "requestId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	req, err := fn(ctx, requestID, user.UserID)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, fallback)
		return
	}
	utils.SendJSON(w, http.StatusOK, req)
}

// AcceptBid обрабатывает запросы клиента на принятие предложения.
func (h *RequestHandler) AcceptBid(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "requestId")
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	req, err := h.Lifecycle.AcceptBid(ctx, requestID, bidID, user.UserID)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to accept bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, req)
}
