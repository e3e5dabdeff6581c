package middleware

import (
	"net/http"

	"github.com/cloo-solutions/talentlens/internal/api"
)

const codePayloadTooLarge = "PAYLOAD_TOO_LARGE"

// MaxBodyBytes limits request body size. Declared lengths over the limit
// are rejected up front; streamed bodies fail when the reader hits it.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.JSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{
					Error: "request body too large",
					Code:  codePayloadTooLarge,
				})
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
