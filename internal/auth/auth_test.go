package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(secret, "entity-42")
	require.NoError(t, err)

	entityID, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "entity-42", entityID)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(secret, "entity-42")
	require.NoError(t, err)

	_, err = ParseToken([]byte("other-secret"), token)
	assert.Error(t, err)
}

func echoEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := EntityIDFromContext(r.Context())
	if !ok {
		http.Error(w, "no entity", 500)
		return
	}
	_, _ = w.Write([]byte(id))
}

func TestMiddlewareBearerToken(t *testing.T) {
	m := New(secret)
	token, err := GenerateToken(secret, "entity-42")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/proposals", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	m.Wrap(echoEntity)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "entity-42", rec.Body.String())
}

func TestMiddlewareInvalidToken(t *testing.T) {
	m := New(secret)

	req := httptest.NewRequest("GET", "/api/proposals", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	m.Wrap(echoEntity)(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareFallbacks(t *testing.T) {
	m := New(secret)

	req := httptest.NewRequest("GET", "/api/proposals", nil)
	req.Header.Set("X-Entity-Id", "header-entity")
	rec := httptest.NewRecorder()
	m.Wrap(echoEntity)(rec, req)
	assert.Equal(t, "header-entity", rec.Body.String())

	req = httptest.NewRequest("GET", "/api/proposals?entityId=query-entity", nil)
	rec = httptest.NewRecorder()
	m.Wrap(echoEntity)(rec, req)
	assert.Equal(t, "query-entity", rec.Body.String())

	req = httptest.NewRequest("GET", "/api/proposals", nil)
	rec = httptest.NewRecorder()
	m.Wrap(echoEntity)(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
