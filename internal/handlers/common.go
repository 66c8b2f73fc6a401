package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/senyabanana/autoservice-market/internal/middleware"
	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/utils"

	"github.com/google/uuid"
)

// currentUser возвращает пользователя запроса. Без него отвечает 401.
func currentUser(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		utils.SendErrorResponse(w, http.StatusUnauthorized, "user is not authenticated")
	}
	return p, ok
}

// pathID читает UUID из параметра пути name.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if _, err := uuid.Parse(id); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid "+name+" format")
		return "", false
	}
	return id, true
}

// maxBodyBytes - предельный размер JSON-тела запроса.
const maxBodyBytes = 1 << 20

var errTrailingData = errors.New("request body must contain a single JSON object")

// decodeBody разбирает JSON-тело запроса в dst. Тело должно содержать ровно один объект.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		err = dec.Decode(&struct{}{})
		if errors.Is(err, io.EOF) {
			return true
		}
		if err == nil {
			err = errTrailingData
		}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.SendErrorResponse(w, http.StatusRequestEntityTooLarge, "request body is too large")
		return false
	}
	utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
	return false
}

// pagination читает limit и offset из строки запроса.
func pagination(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return limit, offset, true
}
