package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/vitalvas/fastapify/internal/logger"
	"github.com/vitalvas/fastapify/router"
)

// RecoveryConfig configures the Recovery middleware.
type RecoveryConfig struct {
	// ErrorHandler writes the response after a panic. When nil a plain
	// 500 Internal Server Error is written.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, recovered any)

	// DisableStack omits the stack trace from the log entry.
	DisableStack bool
}

// Recovery recovers panics raised by downstream handlers, logs them with the
// request logger and answers 500.
func Recovery(cfg RecoveryConfig) router.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				attrs := []any{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
				}
				if !cfg.DisableStack {
					attrs = append(attrs, slog.String("stack", string(debug.Stack())))
				}

				logger.FromContext(r.Context()).Error("panic recovered", attrs...)

				if cfg.ErrorHandler != nil {
					cfg.ErrorHandler(w, r, rec)
					return
				}

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
