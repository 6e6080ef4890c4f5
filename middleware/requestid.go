package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/vitalvas/fastapify/router"
)

// RequestIDHeader is the header carrying the request id.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the id stored by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	// Generate returns a new id. Defaults to a random UUID.
	Generate func() string

	// TrustIncoming reuses a well-formed incoming X-Request-ID.
	TrustIncoming bool
}

// RequestID assigns every request an id, exposes it in the context and
// echoes it in the response header.
func RequestID(cfg RequestIDConfig) router.MiddlewareFunc {
	generate := cfg.Generate
	if generate == nil {
		generate = uuid.NewString
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cfg.TrustIncoming {
				id = incomingID(r.Header.Get(RequestIDHeader))
			}

			if id == "" {
				id = generate()
			}

			r.Header.Set(RequestIDHeader, id)
			w.Header().Set(RequestIDHeader, id)

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// incomingID accepts ids of at most 128 visible ASCII characters.
func incomingID(id string) string {
	if id == "" || len(id) > 128 {
		return ""
	}

	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return ""
		}
	}

	return id
}
