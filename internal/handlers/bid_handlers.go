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

// BidHandler - структура для обработки HTTP-запросов по предложениям.
type BidHandler struct {
	Service *services.BidService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewBidHandler создает новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *zap.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateBid обрабатывает запросы для создания предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var input models.BidInput
	if !decodeBody(w, r, &input) {
		return
	}

	bid, err := h.Service.CreateBid(ctx, input, user.UserID)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to create bid")
		return
	}
	utils.SendJSON(w, http.StatusCreated, bid)
}

// GetUserBids обрабатывает запросы для получения предложений исполнителя.
func (h *BidHandler) GetUserBids(w http.ResponseWriter, r *http.Request) {
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

	bids, err := h.Service.ListByProvider(ctx, user.UserID, limit, offset)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch bids")
		return
	}
	utils.SendJSON(w, http.StatusOK, bids)
}

// GetRequestBids обрабатывает запросы для получения предложений по заявке.
func (h *BidHandler) GetRequestBids(w http.ResponseWriter, r *http.Request) {
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

	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	bids, err := h.Service.ListForRequest(ctx, requestID, user.UserID, limit, offset)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch bids")
		return
	}
	utils.SendJSON(w, http.StatusOK, bids)
}

// GetBidStatus обрабатывает запросы для получения статуса предложения.
func (h *BidHandler) GetBidStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	status, err := h.Service.GetBidStatus(ctx, bidID, user.UserID)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch bid status")
		return
	}
	utils.SendJSON(w, http.StatusOK, status)
}

// EditBid обрабатывает запросы для редактирования предложения.
func (h *BidHandler) EditBid(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var patch models.BidPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	bid, err := h.Service.UpdateBid(ctx, bidID, patch, user.UserID)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to update bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// WithdrawBid обрабатывает запросы для отзыва предложения.
func (h *BidHandler) WithdrawBid(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.WithdrawBid(ctx, bidID, user.UserID)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to withdraw bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// DeleteBid обрабатывает запросы для удаления предложения.
func (h *BidHandler) DeleteBid(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.DeleteBid(ctx, bidID, user.UserID); err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to delete bid")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
