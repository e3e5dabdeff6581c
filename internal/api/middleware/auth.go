package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/cloo-solutions/talentlens/internal/api"
	"github.com/cloo-solutions/talentlens/internal/domain"
)

type contextKey string

const ClientIDKey contextKey = "client_id"

// APIKeyAuth accepts requests bearing one of the configured keys. The
// client id placed in the context is a short fingerprint of the key.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	hashed := make([][32]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			hashed = append(hashed, sha256.Sum256([]byte(k)))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			sum := sha256.Sum256([]byte(token))
			matched := 0
			for _, h := range hashed {
				matched |= subtle.ConstantTimeCompare(sum[:], h[:])
			}
			if matched != 1 {
				api.HandleError(w, r, domain.ErrInvalidAPIKey)
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, hex.EncodeToString(sum[:4]))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientID returns the authenticated client fingerprint, if any.
func GetClientID(ctx context.Context) string {
	id, _ := ctx.Value(ClientIDKey).(string)
	return id
}
