package repository

import (
	"context"
	"time"

	"github.com/senyabanana/autoservice-market/internal/models"
)

// RequestFilter - параметры выборки заявок.
type RequestFilter struct {
	ClientID     string
	Statuses     []models.RequestStatus
	ServiceTypes []string
	OpenAt       time.Time // если задано, только заявки с expires_at > OpenAt
	Limit        int
	Offset       int
}

// ServiceRequestRepository - интерфейс для работы с заявками.
type ServiceRequestRepository interface {
	CreateRequest(ctx context.Context, req *models.ServiceRequest) error
	GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error)
	// GetRequestForUpdate читает заявку с блокировкой строки до конца транзакции.
	GetRequestForUpdate(ctx context.Context, id string) (*models.ServiceRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]models.ServiceRequest, error)
	UpdateRequest(ctx context.Context, req *models.ServiceRequest) error
	IncrementBidsCount(ctx context.Context, id string, now time.Time) (*models.ServiceRequest, error)
	DeleteRequest(ctx context.Context, id string) error
	ListExpiredRequestIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// BidRepository - интерфейс для работы с предложениями.
type BidRepository interface {
	CreateBid(ctx context.Context, bid *models.Bid) error
	GetBid(ctx context.Context, id string) (*models.Bid, error)
	FindProviderBid(ctx context.Context, requestID, providerID string) (*models.Bid, error)
	ListRequestBids(ctx context.Context, requestID string, limit, offset int) ([]models.Bid, error)
	ListProviderBids(ctx context.Context, providerID string, limit, offset int) ([]models.Bid, error)
	UpdateBid(ctx context.Context, bid *models.Bid) error
	SetBidStatus(ctx context.Context, id string, status models.BidStatus, now time.Time) error
	// RejectOtherBids отклоняет все предложения заявки, кроме keepID.
	RejectOtherBids(ctx context.Context, requestID, keepID string, now time.Time) (int64, error)
	// SetPendingBidsStatus переводит ожидающие предложения заявки в status.
	SetPendingBidsStatus(ctx context.Context, requestID string, status models.BidStatus, now time.Time) (int64, error)
	DeleteBid(ctx context.Context, id string) error
	DeleteRequestBids(ctx context.Context, requestID string) error
}

// UserRepository - интерфейс для работы с пользователями.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Store объединяет репозитории над одним хранилищем.
type Store interface {
	Requests() ServiceRequestRepository
	Bids() BidRepository
	Users() UserRepository
	// InTx выполняет fn в одной транзакции. Репозитории из tx видят только ее.
	// Ошибка fn откатывает транзакцию.
	InTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
	Close()
}
