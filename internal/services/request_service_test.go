package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/senyabanana/autoservice-market/internal/events"
	"github.com/senyabanana/autoservice-market/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCreateRequest_Defaults(t *testing.T) {
	e := newEnv(t)
	client := e.user(t, models.RoleClient)

	req := e.request(t, client)

	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, 0, req.BidsCount)
	assert.Nil(t, req.AcceptedBidID)
	assert.Equal(t, client, req.ClientID)
	assert.Equal(t, baseTime.Add(models.RequestTTL), req.ExpiresAt)

	stored, err := e.requests.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, stored.ID)
	assert.Equal(t, req.Title, stored.Title)
	assert.Equal(t, req.VehicleYear, stored.VehicleYear)
	assert.True(t, req.ExpiresAt.Equal(stored.ExpiresAt))
	assert.Nil(t, stored.AcceptedBidID)
	assert.Equal(t, []events.Type{events.RequestCreated}, e.events.Types())
}

func TestCreateRequest_Validation(t *testing.T) {
	e := newEnv(t)
	client := e.user(t, models.RoleClient)

	cases := map[string]models.ServiceRequestInput{
		"missing title":       {Description: "d", ServiceType: models.Repair},
		"missing description": {Title: "t", ServiceType: models.Repair},
		"missing type":        {Title: "t", Description: "d"},
		"unknown type":        {Title: "t", Description: "d", ServiceType: "Tuning"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.requests.CreateRequest(context.Background(), input, client)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestGetRequest_NotFound(t *testing.T) {
	e := newEnv(t)

	_, err := e.requests.GetRequest(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListAvailable_OnlyOpenAndNotExpired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, models.RoleClient)
	provider := e.user(t, models.RoleProvider)

	old := e.request(t, client)
	e.clock.Advance(6 * 24 * time.Hour)
	fresh := e.request(t, client)
	withBid := e.request(t, client)
	e.bid(t, withBid.ID, provider, 5000)
	cancelled := e.request(t, client)
	_, err := e.lifecycle.CancelRequest(ctx, cancelled.ID, client)
	require.NoError(t, err)

	e.clock.Advance(2 * 24 * time.Hour)
	list, err := e.requests.ListAvailable(ctx, nil, 10, 0)
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{fresh.ID, withBid.ID}, ids)
	assert.NotContains(t, ids, old.ID)
}

func TestListAvailable_FiltersByServiceType(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, models.RoleClient)

	e.request(t, client)
	parts, err := e.requests.CreateRequest(ctx, models.ServiceRequestInput{
		Title: "Alternator", Description: "Need a used alternator", ServiceType: models.Parts,
	}, client)
	require.NoError(t, err)

	list, err := e.requests.ListAvailable(ctx, []string{string(models.Parts)}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, parts.ID, list[0].ID)

	_, err = e.requests.ListAvailable(ctx, []string{"Tuning"}, 10, 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestListByClient_Pagination(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, models.RoleClient)
	other := e.user(t, models.RoleClient)

	for i := 0; i < 3; i++ {
		e.request(t, client)
		e.clock.Advance(time.Minute)
	}
	e.request(t, other)

	page, err := e.requests.ListByClient(ctx, client, nil, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	rest, err := e.requests.ListByClient(ctx, client, nil, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestListByClient_StatusFilter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, models.RoleClient)

	open := e.request(t, client)
	cancelled := e.request(t, client)
	_, err := e.lifecycle.CancelRequest(ctx, cancelled.ID, client)
	require.NoError(t, err)

	list, err := e.requests.ListByClient(ctx, client, []string{"CANCELLED"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cancelled.ID, list[0].ID)

	list, err = e.requests.ListByClient(ctx, client, []string{"PENDING", "CANCELLED"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.NotEqual(t, list[0].ID, list[1].ID)
	assert.Contains(t, []string{list[0].ID, list[1].ID}, open.ID)

	_, err = e.requests.ListByClient(ctx, client, []string{"cancelled"}, 10, 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, models.RoleClient)
	req := e.request(t, client)

	e.clock.Advance(time.Hour)
	updated, err := e.requests.UpdateRequest(ctx, req.ID, models.ServiceRequestPatch{
		Title:    ptr("Brake pads and discs"),
		Location: ptr("Kazan"),
	}, client)
	require.NoError(t, err)
	assert.Equal(t, "Brake pads and discs", updated.Title)
	assert.Equal(t, "Kazan", updated.Location)
	assert.Equal(t, req.Description, updated.Description)
	assert.Equal(t, models.RequestPending, updated.Status)
	assert.Equal(t, baseTime.Add(time.Hour), updated.UpdatedAt)
}

func TestUpdateRequest_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, models.RoleClient)
	stranger := e.user(t, models.RoleClient)
	req := e.request(t, client)

	_, err := e.requests.UpdateRequest(ctx, req.ID, models.ServiceRequestPatch{}, client)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = e.requests.UpdateRequest(ctx, req.ID, models.ServiceRequestPatch{Title: ptr("x")}, stranger)
	assert.ErrorIs(t, err, models.ErrPermission)

	_, err = e.requests.UpdateRequest(ctx, req.ID, models.ServiceRequestPatch{Title: ptr("  ")}, client)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = e.requests.UpdateRequest(ctx, "00000000-0000-0000-0000-000000000000", models.ServiceRequestPatch{Title: ptr("x")}, client)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateRequest_InProgressAndCompletedRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, models.RoleClient)
	provider := e.user(t, models.RoleProvider)
	req := e.request(t, client)
	bid := e.bid(t, req.ID, provider, 12000)

	_, err := e.lifecycle.AcceptBid(ctx, req.ID, bid.ID, client)
	require.NoError(t, err)
	_, err = e.lifecycle.StartWork(ctx, req.ID, provider)
	require.NoError(t, err)

	_, err = e.requests.UpdateRequest(ctx, req.ID, models.ServiceRequestPatch{Title: ptr("x")}, client)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = e.lifecycle.CompleteWork(ctx, req.ID, client)
	require.NoError(t, err)

	_, err = e.requests.UpdateRequest(ctx, req.ID, models.ServiceRequestPatch{Title: ptr("x")}, client)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestDeleteRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, models.RoleClient)
	stranger := e.user(t, models.RoleClient)
	req := e.request(t, client)

	assert.ErrorIs(t, e.requests.DeleteRequest(ctx, req.ID, stranger), models.ErrPermission)
	require.NoError(t, e.requests.DeleteRequest(ctx, req.ID, client))

	_, err := e.requests.GetRequest(ctx, req.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, e.events.Types(), events.RequestDeleted)
}

func TestDeleteRequest_CancelledRemovesBids(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, models.RoleClient)
	provider := e.user(t, models.RoleProvider)
	req := e.request(t, client)
	bid := e.bid(t, req.ID, provider, 3000)

	// RECEIVING_BIDS нельзя удалить, пока заявка не отменена.
	assert.ErrorIs(t, e.requests.DeleteRequest(ctx, req.ID, client), models.ErrInvalidState)

	_, err := e.lifecycle.CancelRequest(ctx, req.ID, client)
	require.NoError(t, err)
	require.NoError(t, e.requests.DeleteRequest(ctx, req.ID, client))

	_, err = e.store.Bids().GetBid(ctx, bid.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteRequest_AfterAcceptance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, models.RoleClient)
	provider := e.user(t, models.RoleProvider)
	req := e.request(t, client)
	bid := e.bid(t, req.ID, provider, 3000)

	_, err := e.lifecycle.AcceptBid(ctx, req.ID, bid.ID, client)
	require.NoError(t, err)

	assert.ErrorIs(t, e.requests.DeleteRequest(ctx, req.ID, client), models.ErrInvalidState)
}
