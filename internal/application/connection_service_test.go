package application

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
)

func TestCompleteConnectionCreatesWhenUnknown(t *testing.T) {
	repo := newFakeConnectionRepo()
	svc := NewConnectionService(repo, zerolog.Nop())

	conn, err := svc.CompleteConnection(context.Background(), &AuthResult{
		StoreDomain: "demo-store.myshopify.com",
		AccessToken: "shpat_token",
		Scope:       "read_orders",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, conn.ID)
	assert.Equal(t, domain.ConnectionActive, conn.Status)
	assert.True(t, conn.Connected())
	assert.False(t, conn.ConnectedAt.IsZero())
}

func TestCompleteConnectionRefreshesExistingDomain(t *testing.T) {
	repo := newFakeConnectionRepo()
	svc := NewConnectionService(repo, zerolog.Nop())

	first, err := svc.CompleteConnection(context.Background(), &AuthResult{
		StoreDomain: "demo-store.myshopify.com",
		AccessToken: "shpat_old",
		Scope:       "read_orders",
	})
	require.NoError(t, err)

	second, err := svc.CompleteConnection(context.Background(), &AuthResult{
		StoreDomain: "demo-store.myshopify.com",
		AccessToken: "shpat_new",
		Scope:       "read_orders,read_customers",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same store must reuse the connection")
	assert.Equal(t, "shpat_new", second.AccessToken)

	stored, err := repo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "shpat_new", stored.AccessToken)
}

func TestCompleteConnectionLandsOnPendingConnection(t *testing.T) {
	repo := newFakeConnectionRepo()
	svc := NewConnectionService(repo, zerolog.Nop())

	pending, err := repo.Create(context.Background(), &domain.Connection{Status: domain.ConnectionNeedsReauth})
	require.NoError(t, err)

	conn, err := svc.CompleteConnection(context.Background(), &AuthResult{
		StoreDomain:         "demo-store.myshopify.com",
		AccessToken:         "shpat_token",
		Scope:               "read_orders",
		PendingConnectionID: pending.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, pending.ID, conn.ID)
	assert.Equal(t, domain.ConnectionActive, conn.Status)
}

func TestCompleteConnectionFallsBackWhenPendingVanished(t *testing.T) {
	repo := newFakeConnectionRepo()
	svc := NewConnectionService(repo, zerolog.Nop())

	conn, err := svc.CompleteConnection(context.Background(), &AuthResult{
		StoreDomain:         "demo-store.myshopify.com",
		AccessToken:         "shpat_token",
		Scope:               "read_orders",
		PendingConnectionID: "conn-does-not-exist",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "conn-does-not-exist", conn.ID)
	assert.True(t, conn.Connected())
}

func TestGetUnknownConnection(t *testing.T) {
	svc := NewConnectionService(newFakeConnectionRepo(), zerolog.Nop())

	_, err := svc.Get(context.Background(), "conn-404")
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)

	_, err = svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingParameter)
}

func TestDisconnectClearsCredentialAndDomainTogether(t *testing.T) {
	repo := newFakeConnectionRepo()
	svc := NewConnectionService(repo, zerolog.Nop())

	conn, err := svc.CompleteConnection(context.Background(), &AuthResult{
		StoreDomain: "demo-store.myshopify.com",
		AccessToken: "shpat_token",
		Scope:       "read_orders",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Disconnect(context.Background(), conn.ID))

	stored, err := repo.GetByID(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionDisconnected, stored.Status)
	assert.Empty(t, stored.StoreDomain)
	assert.Empty(t, stored.AccessToken)
	assert.False(t, stored.Connected())

	// Second disconnect is a no-op, not an error.
	assert.NoError(t, svc.Disconnect(context.Background(), conn.ID))
}
