package router

import (
	"net/http"

	"github.com/senyabanana/autoservice-market/internal/handlers"
	"github.com/senyabanana/autoservice-market/internal/middleware"
	"github.com/senyabanana/autoservice-market/internal/models"
)

// Handlers - обработчики, подключаемые к маршрутам.
type Handlers struct {
	Requests *handlers.RequestHandler
	Bids     *handlers.BidHandler
	Auth     *handlers.AuthHandler
}

func InitRoutes(h Handlers, auth *middleware.Authenticator) *http.ServeMux {
	mux := http.NewServeMux()
	client := models.RoleClient
	provider := models.RoleProvider

	mux.HandleFunc("GET /api/ping", handlers.PingHandler)

	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("GET /api/auth/me", auth.Require(h.Auth.Me))

	mux.HandleFunc("GET /api/requests", auth.Require(h.Requests.GetAvailableRequests))
	mux.HandleFunc("POST /api/requests/new", auth.Require(h.Requests.CreateRequest, client))
	mux.HandleFunc("GET /api/requests/my", auth.Require(h.Requests.GetMyRequests, client))
	mux.HandleFunc("GET /api/requests/{requestId}", auth.Require(h.Requests.GetRequest))
	mux.HandleFunc("PATCH /api/requests/{requestId}/edit", auth.Require(h.Requests.EditRequest, client))
	mux.HandleFunc("DELETE /api/requests/{requestId}", auth.Require(h.Requests.DeleteRequest, client))
	mux.HandleFunc("PUT /api/requests/{requestId}/cancel", auth.Require(h.Requests.CancelRequest, client))
	mux.HandleFunc("PUT /api/requests/{requestId}/start", auth.Require(h.Requests.StartWork))
	mux.HandleFunc("PUT /api/requests/{requestId}/complete", auth.Require(h.Requests.CompleteWork))
	mux.HandleFunc("PUT /api/requests/{requestId}/bids/{bidId}/accept", auth.Require(h.Requests.AcceptBid, client))

	mux.HandleFunc("POST /api/bids/new", auth.Require(h.Bids.CreateBid, provider))
	mux.HandleFunc("GET /api/bids/my", auth.Require(h.Bids.GetUserBids, provider))
	mux.HandleFunc("GET /api/bids/{requestId}/list", auth.Require(h.Bids.GetRequestBids, client))
	mux.HandleFunc("GET /api/bids/{bidId}/status", auth.Require(h.Bids.GetBidStatus))
	mux.HandleFunc("PATCH /api/bids/{bidId}/edit", auth.Require(h.Bids.EditBid, provider))
	mux.HandleFunc("PUT /api/bids/{bidId}/withdraw", auth.Require(h.Bids.WithdrawBid, provider))
	mux.HandleFunc("DELETE /api/bids/{bidId}", auth.Require(h.Bids.DeleteBid, provider))

	return mux
}
