package shopify

import (
	"errors"
	"fmt"
	"testing"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
)

func testClient() *client {
	cfg := ClientConfig{
		APIKey:      "test-key",
		APISecret:   "test-secret",
		Scopes:      "read_orders,read_customers",
		RedirectURL: "https://app.example.com/callback",
	}
	return NewClient(cfg, zerolog.Nop()).(*client)
}

func TestAuthorizeURL(t *testing.T) {
	c := testClient()

	got := c.AuthorizeURL("demo-store", "state-token-123")

	assert.Contains(t, got, "https://demo-store.myshopify.com/admin/oauth/authorize")
	assert.Contains(t, got, "client_id=test-key")
	assert.Contains(t, got, "scope=read_orders%2Cread_customers")
	assert.Contains(t, got, "redirect_uri=https%3A%2F%2Fapp.example.com%2Fcallback")
	assert.Contains(t, got, "state=state-token-123")
}

func TestMapRemoteErrorRateLimit(t *testing.T) {
	err := mapRemoteError(goshopify.RateLimitError{
		ResponseError: goshopify.ResponseError{Status: 429, Message: "Exceeded 2 calls per second"},
		RetryAfter:    7,
	})

	var rateLimited *domain.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 7*time.Second, rateLimited.RetryAfter)
}

func TestMapRemoteErrorAuth(t *testing.T) {
	for _, status := range []int{401, 403} {
		err := mapRemoteError(goshopify.ResponseError{Status: status, Message: "invalid token"})

		var authErr *domain.AuthError
		require.ErrorAs(t, err, &authErr, "status %d", status)
		assert.Equal(t, status, authErr.Status)
	}
}

func TestMapRemoteErrorTransport(t *testing.T) {
	err := mapRemoteError(goshopify.ResponseError{Status: 500, Message: "internal error"})

	var transport *domain.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, 500, transport.Status)
}

func TestMapRemoteErrorUnknown(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := mapRemoteError(cause)

	var transport *domain.TransportError
	require.ErrorAs(t, err, &transport)
	assert.True(t, errors.Is(err, cause))
}
