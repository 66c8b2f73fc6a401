package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/senyabanana/autoservice-market/internal/models"

	"go.uber.org/zap"
)

const (
	defaultLimit = 5
	maxLimit     = 50
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := models.NewErrorResponse(statusCode, message)
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		zap.L().Warn("encode error response", zap.Error(err))
	}
}

// SendServiceError переводит ошибку сервиса в HTTP-ответ. Ошибки без кода
// логируются и отдаются как 500 с сообщением fallback.
func SendServiceError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		log.Debug("request rejected", zap.Int("status", errorResponse.StatusCode), zap.Error(err))
		SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	log.Error(fallback, zap.Error(err))
	SendErrorResponse(w, http.StatusInternalServerError, fallback)
}

// SendJSON отправляет значение v в формате JSON
func SendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

// ParseLimitOffset обрабатывает limit и offset
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > maxLimit {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [1:%d]", maxLimit)
		}
	} else {
		limit = defaultLimit
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	}

	return limit, offset, nil
}
