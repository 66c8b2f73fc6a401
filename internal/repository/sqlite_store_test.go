package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/senyabanana/autoservice-market/internal/db"
	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := db.OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func seedUser(t *testing.T, store repository.Store, role models.Role) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, store.Users().CreateUser(context.Background(), &models.User{
		ID: id, Email: id + "@example.com", Name: "u", Role: role, PasswordHash: "h", CreatedAt: now,
	}))
	return id
}

func seedRequest(t *testing.T, store repository.Store, clientID string) *models.ServiceRequest {
	t.Helper()
	req := &models.ServiceRequest{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		Title:       "Oil change",
		Description: "5W-30",
		ServiceType: models.Maintenance,
		Status:      models.RequestPending,
		ExpiresAt:   now.Add(models.RequestTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.Requests().CreateRequest(context.Background(), req))
	return req
}

func seedBid(t *testing.T, store repository.Store, requestID, providerID string) *models.Bid {
	t.Helper()
	bid := &models.Bid{
		ID:               uuid.NewString(),
		ServiceRequestID: requestID,
		ProviderID:       providerID,
		Status:           models.BidPending,
		TotalAmount:      4200,
		Items:            []models.BidItem{{Description: "Oil", Quantity: 1, UnitPrice: 4200}},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, store.Bids().CreateBid(context.Background(), bid))
	return bid
}

func TestRequestRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	client := seedUser(t, store, models.RoleClient)
	req := seedRequest(t, store, client)

	got, err := store.Requests().GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.Title, got.Title)
	assert.Equal(t, models.Maintenance, got.ServiceType)
	assert.Equal(t, models.RequestPending, got.Status)
	assert.Nil(t, got.AcceptedBidID)
	assert.True(t, req.ExpiresAt.Equal(got.ExpiresAt))
	assert.True(t, req.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateRequest_UnknownClient(t *testing.T) {
	store := newStore(t)
	req := &models.ServiceRequest{
		ID: uuid.NewString(), ClientID: uuid.NewString(), Title: "t", Description: "d",
		ServiceType: models.Repair, Status: models.RequestPending,
		ExpiresAt: now, CreatedAt: now, UpdatedAt: now,
	}
	err := store.Requests().CreateRequest(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIncrementBidsCount(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	req := seedRequest(t, store, seedUser(t, store, models.RoleClient))

	got, err := store.Requests().IncrementBidsCount(ctx, req.ID, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, got.BidsCount)
	assert.Equal(t, models.RequestReceivingBids, got.Status)

	got, err = store.Requests().IncrementBidsCount(ctx, req.ID, now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, got.BidsCount)
	assert.Equal(t, models.RequestReceivingBids, got.Status)

	_, err = store.Requests().IncrementBidsCount(ctx, uuid.NewString(), now)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBid_UniquePerProvider(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	provider := seedUser(t, store, models.RoleProvider)
	req := seedRequest(t, store, seedUser(t, store, models.RoleClient))
	first := seedBid(t, store, req.ID, provider)

	dup := *first
	dup.ID = uuid.NewString()
	err := store.Bids().CreateBid(ctx, &dup)
	assert.ErrorIs(t, err, models.ErrDuplicate)

	found, err := store.Bids().FindProviderBid(ctx, req.ID, provider)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, first.Items, found.Items)
}

func TestBid_OneAcceptedPerRequest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	req := seedRequest(t, store, seedUser(t, store, models.RoleClient))
	b1 := seedBid(t, store, req.ID, seedUser(t, store, models.RoleProvider))
	b2 := seedBid(t, store, req.ID, seedUser(t, store, models.RoleProvider))

	require.NoError(t, store.Bids().SetBidStatus(ctx, b1.ID, models.BidAccepted, now))
	err := store.Bids().SetBidStatus(ctx, b2.ID, models.BidAccepted, now)
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestAcceptedBidIDRequiresAcceptedStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	req := seedRequest(t, store, seedUser(t, store, models.RoleClient))
	bid := seedBid(t, store, req.ID, seedUser(t, store, models.RoleProvider))

	req.AcceptedBidID = &bid.ID
	assert.Error(t, store.Requests().UpdateRequest(ctx, req))

	req.AcceptedBidID = nil
	req.Status = models.RequestBidAccepted
	assert.Error(t, store.Requests().UpdateRequest(ctx, req))
}

func TestRejectOtherBids(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	req := seedRequest(t, store, seedUser(t, store, models.RoleClient))
	keep := seedBid(t, store, req.ID, seedUser(t, store, models.RoleProvider))
	b2 := seedBid(t, store, req.ID, seedUser(t, store, models.RoleProvider))
	b3 := seedBid(t, store, req.ID, seedUser(t, store, models.RoleProvider))
	require.NoError(t, store.Bids().SetBidStatus(ctx, b3.ID, models.BidWithdrawn, now))

	n, err := store.Bids().RejectOtherBids(ctx, req.ID, keep.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for id, want := range map[string]models.BidStatus{
		keep.ID: models.BidPending,
		b2.ID:   models.BidRejected,
		b3.ID:   models.BidRejected,
	} {
		got, err := store.Bids().GetBid(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
}

func TestInTx_RollbackOnError(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	req := seedRequest(t, store, seedUser(t, store, models.RoleClient))
	provider := seedUser(t, store, models.RoleProvider)

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx repository.Store) error {
		seedBid(t, tx, req.ID, provider)
		if _, err := tx.Requests().IncrementBidsCount(ctx, req.ID, now); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Requests().GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.BidsCount)
	assert.Equal(t, models.RequestPending, got.Status)

	bids, err := store.Bids().ListRequestBids(ctx, req.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, bids)
}

func TestListRequests_Filters(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	client := seedUser(t, store, models.RoleClient)
	a := seedRequest(t, store, client)
	b := seedRequest(t, store, client)
	b.ServiceType = models.Parts
	b.UpdatedAt = now
	require.NoError(t, store.Requests().UpdateRequest(ctx, b))

	list, err := store.Requests().ListRequests(ctx, repository.RequestFilter{
		Statuses:     models.AvailableStatuses(),
		ServiceTypes: []string{string(models.Parts)},
		OpenAt:       now,
		Limit:        10,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	list, err = store.Requests().ListRequests(ctx, repository.RequestFilter{ClientID: client, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = store.Requests().ListRequests(ctx, repository.RequestFilter{OpenAt: a.ExpiresAt, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, list)

	ids, err := store.Requests().ListExpiredRequestIDs(ctx, a.ExpiresAt, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}
