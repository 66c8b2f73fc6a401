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

// AuthHandler - регистрация и вход пользователей.
type AuthHandler struct {
	Service *services.AuthService
	Logger  *zap.Logger
	Timeout time.Duration
}

func NewAuthHandler(service *services.AuthService, logger *zap.Logger, timeout time.Duration) *AuthHandler {
	return &AuthHandler{Service: service, Logger: logger, Timeout: timeout}
}

// Register обрабатывает регистрацию пользователя.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var input models.RegisterRequest
	if !decodeBody(w, r, &input) {
		return
	}

	user, err := h.Service.Register(ctx, input)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to register user")
		return
	}
	utils.SendJSON(w, http.StatusCreated, user)
}

// Login обрабатывает вход и выдает токен.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var input models.LoginRequest
	if !decodeBody(w, r, &input) {
		return
	}

	token, err := h.Service.Login(ctx, input)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to log in")
		return
	}
	utils.SendJSON(w, http.StatusOK, token)
}

// Me возвращает профиль текущего пользователя.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	profile, err := h.Service.Me(ctx, user.UserID)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch profile")
		return
	}
	utils.SendJSON(w, http.StatusOK, profile)
}
