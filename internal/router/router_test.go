package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/senyabanana/autoservice-market/internal/db"
	"github.com/senyabanana/autoservice-market/internal/handlers"
	"github.com/senyabanana/autoservice-market/internal/middleware"
	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/router"
	"github.com/senyabanana/autoservice-market/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type api struct {
	t      *testing.T
	server *httptest.Server
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store, err := db.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	log := zaptest.NewLogger(t)
	deps := services.Deps{Store: store, Log: log}
	auth := services.NewAuthService(store, log, []byte("router-secret"), time.Hour)
	timeout := 5 * time.Second

	mux := router.InitRoutes(router.Handlers{
		Requests: handlers.NewRequestHandler(services.NewRequestService(deps, 0), services.NewLifecycleService(deps), log, timeout),
		Bids:     handlers.NewBidHandler(services.NewBidService(deps), log, timeout),
		Auth:     handlers.NewAuthHandler(auth, log, timeout),
	}, middleware.NewAuthenticator(auth))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &api{t: t, server: server}
}

func (a *api) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(a.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *api) signUp(email string, role models.Role) string {
	a.t.Helper()
	code := a.do(http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email: email, Name: email, Password: "password123", Role: role,
	}, nil)
	require.Equal(a.t, http.StatusCreated, code)

	var token models.TokenResponse
	code = a.do(http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: email, Password: "password123"}, &token)
	require.Equal(a.t, http.StatusOK, code)
	return token.Token
}

func TestPing(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/ping", "", nil, nil))
}

func TestMarketplaceFlow(t *testing.T) {
	a := newAPI(t)
	client := a.signUp("client@example.com", models.RoleClient)
	shop1 := a.signUp("shop1@example.com", models.RoleProvider)
	shop2 := a.signUp("shop2@example.com", models.RoleProvider)

	var req models.ServiceRequest
	code := a.do(http.MethodPost, "/api/requests/new", client, models.ServiceRequestInput{
		Title: "Timing belt", Description: "Replace timing belt", ServiceType: models.Maintenance,
	}, &req)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, models.RequestPending, req.Status)

	var b1, b2 models.Bid
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/bids/new", shop1,
		models.BidInput{ServiceRequestID: req.ID, TotalAmount: 20000}, &b1))
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/bids/new", shop2,
		models.BidInput{ServiceRequestID: req.ID, TotalAmount: 18000}, &b2))
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/api/bids/new", shop2,
		models.BidInput{ServiceRequestID: req.ID, TotalAmount: 17000}, nil))

	var available []models.ServiceRequest
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/requests?serviceType=Maintenance", shop1, nil, &available))
	require.Len(t, available, 1)
	assert.Equal(t, 2, available[0].BidsCount)
	assert.Equal(t, models.RequestReceivingBids, available[0].Status)

	var list []models.Bid
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/bids/"+req.ID+"/list", client, nil, &list))
	require.Len(t, list, 2)
	assert.Equal(t, b2.ID, list[0].ID)

	var accepted models.ServiceRequest
	code = a.do(http.MethodPut, "/api/requests/"+req.ID+"/bids/"+b1.ID+"/accept", client, nil, &accepted)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.RequestBidAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedBidID)
	assert.Equal(t, b1.ID, *accepted.AcceptedBidID)

	var status models.BidStatus
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/bids/"+b2.ID+"/status", shop2, nil, &status))
	assert.Equal(t, models.BidRejected, status)

	assert.Equal(t, http.StatusConflict, a.do(http.MethodPut, "/api/requests/"+req.ID+"/bids/"+b2.ID+"/accept", client, nil, nil))
	assert.Equal(t, http.StatusConflict, a.do(http.MethodDelete, "/api/requests/"+req.ID, client, nil, nil))

	var progress models.ServiceRequest
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/api/requests/"+req.ID+"/start", shop1, nil, &progress))
	assert.Equal(t, models.RequestInProgress, progress.Status)
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/api/requests/"+req.ID+"/complete", client, nil, &progress))
	assert.Equal(t, models.RequestCompleted, progress.Status)
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)
	client := a.signUp("owner@example.com", models.RoleClient)
	other := a.signUp("other@example.com", models.RoleClient)
	shop := a.signUp("shop@example.com", models.RoleProvider)

	var req models.ServiceRequest
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/requests/new", client, models.ServiceRequestInput{
		Title: "Tyres", Description: "Seasonal swap", ServiceType: models.Maintenance,
	}, &req))

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{"no token", http.MethodGet, "/api/requests", "", nil, http.StatusUnauthorized},
		{"provider cannot create request", http.MethodPost, "/api/requests/new", shop, models.ServiceRequestInput{Title: "t", Description: "d", ServiceType: models.Repair}, http.StatusForbidden},
		{"invalid service type", http.MethodPost, "/api/requests/new", client, models.ServiceRequestInput{Title: "t", Description: "d", ServiceType: "Tuning"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/requests/new", client, map[string]any{"title": "t", "colour": "red"}, http.StatusBadRequest},
		{"malformed id", http.MethodGet, "/api/requests/not-a-uuid", client, nil, http.StatusBadRequest},
		{"missing request", http.MethodGet, "/api/requests/00000000-0000-0000-0000-000000000000", client, nil, http.StatusNotFound},
		{"foreign edit", http.MethodPatch, "/api/requests/" + req.ID + "/edit", other, models.ServiceRequestPatch{Title: ptr("x")}, http.StatusForbidden},
		{"foreign bid list", http.MethodGet, "/api/bids/" + req.ID + "/list", other, nil, http.StatusForbidden},
		{"bad limit", http.MethodGet, "/api/requests?limit=abc", shop, nil, http.StatusBadRequest},
		{"unknown status filter", http.MethodGet, "/api/requests/my?status=DONE", client, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, a.do(tc.method, tc.path, tc.token, tc.body, nil))
		})
	}
}

func TestMyRequests_StatusFilter(t *testing.T) {
	a := newAPI(t)
	client := a.signUp("filter@example.com", models.RoleClient)

	var kept, cancelled models.ServiceRequest
	input := models.ServiceRequestInput{Title: "Wipers", Description: "Replace blades", ServiceType: models.Parts}
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/requests/new", client, input, &kept))
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/requests/new", client, input, &cancelled))
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/api/requests/"+cancelled.ID+"/cancel", client, nil, nil))

	var list []models.ServiceRequest
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/requests/my?status=PENDING", client, nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/requests/my", client, nil, &list))
	assert.Len(t, list, 2)
}

func TestMe(t *testing.T) {
	a := newAPI(t)
	token := a.signUp("me@example.com", models.RoleProvider)

	var me models.User
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/auth/me", token, nil, &me))
	assert.Equal(t, "me@example.com", me.Email)
	assert.Equal(t, models.RoleProvider, me.Role)
}

func ptr[T any](v T) *T { return &v }
