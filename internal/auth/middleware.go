package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const entityIDKey ctxKey = "entity_id"

// Middleware resolves the tenant (entity id) for UI-facing endpoints.
// A bearer token is authoritative; the X-Entity-Id header and the
// entityId query param are accepted as fallbacks so local development
// works without a token issuer.
type Middleware struct {
	secret []byte
}

func New(secret []byte) Middleware {
	return Middleware{secret: secret}
}

func (m Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			tokenString := strings.TrimPrefix(h, "Bearer ")
			entityID, err := ParseToken(m.secret, tokenString)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next(w, r.WithContext(WithEntityID(r.Context(), entityID)))
			return
		}

		entityID := strings.TrimSpace(r.Header.Get("X-Entity-Id"))
		if entityID == "" {
			entityID = strings.TrimSpace(r.URL.Query().Get("entityId"))
		}
		if entityID == "" {
			http.Error(w, "missing entity id", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(WithEntityID(r.Context(), entityID)))
	}
}

func WithEntityID(ctx context.Context, entityID string) context.Context {
	return context.WithValue(ctx, entityIDKey, entityID)
}

func EntityIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(entityIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
