package services_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/autoservice-market/internal/db"
	"github.com/senyabanana/autoservice-market/internal/events"
	"github.com/senyabanana/autoservice-market/internal/metrics"
	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/repository"
	"github.com/senyabanana/autoservice-market/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// recordingCache хранит копии заявок в памяти и считает обращения.
type recordingCache struct {
	mu          sync.Mutex
	items       map[string]models.ServiceRequest
	hits        int
	invalidated map[string]int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{items: map[string]models.ServiceRequest{}, invalidated: map[string]int{}}
}

func (c *recordingCache) Get(_ context.Context, id string) (*models.ServiceRequest, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.items[id]
	if !ok {
		return nil, false, nil
	}
	c.hits++
	return &req, true, nil
}

func (c *recordingCache) Set(_ context.Context, req *models.ServiceRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[req.ID] = *req
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.invalidated[id]++
	return nil
}

func (c *recordingCache) Ping(context.Context) error { return nil }

func (c *recordingCache) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	return ok
}

func (c *recordingCache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func (c *recordingCache) Invalidations(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated[id]
}

type env struct {
	store     repository.Store
	cache     *recordingCache
	clock     *clock
	events    *recordingPublisher
	metrics   *metrics.Metrics
	requests  *services.RequestService
	bids      *services.BidService
	lifecycle *services.LifecycleService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store, err := db.OpenSQLite(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	e := &env{
		store:   store,
		cache:   newRecordingCache(),
		clock:   &clock{now: baseTime},
		events:  &recordingPublisher{},
		metrics: metrics.New(),
	}
	deps := services.Deps{
		Store:   store,
		Cache:   e.cache,
		Events:  e.events,
		Metrics: e.metrics,
		Log:     zaptest.NewLogger(t),
		Now:     e.clock.Now,
	}
	e.requests = services.NewRequestService(deps, models.RequestTTL)
	e.bids = services.NewBidService(deps)
	e.lifecycle = services.NewLifecycleService(deps)
	return e
}

func (e *env) user(t *testing.T, role models.Role) string {
	t.Helper()
	id := uuid.NewString()
	err := e.store.Users().CreateUser(context.Background(), &models.User{
		ID:           id,
		Email:        id + "@example.com",
		Name:         string(role),
		Role:         role,
		PasswordHash: "x",
		CreatedAt:    baseTime,
	})
	require.NoError(t, err)
	return id
}

func (e *env) request(t *testing.T, clientID string) *models.ServiceRequest {
	t.Helper()
	req, err := e.requests.CreateRequest(context.Background(), models.ServiceRequestInput{
		Title:        "Brake pads",
		Description:  "Front brake pads squeal",
		ServiceType:  models.Repair,
		VehicleMake:  "Toyota",
		VehicleModel: "Corolla",
		VehicleYear:  2015,
	}, clientID)
	require.NoError(t, err)
	return req
}

func (e *env) bid(t *testing.T, requestID, providerID string, amount int64) *models.Bid {
	t.Helper()
	bid, err := e.bids.CreateBid(context.Background(), models.BidInput{
		ServiceRequestID: requestID,
		TotalAmount:      amount,
		Message:          "can do it tomorrow",
	}, providerID)
	require.NoError(t, err)
	return bid
}
