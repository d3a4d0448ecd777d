package middleware

import (
	"log/slog"
	"net/http"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, pre-loaded
// with correlation_id, user_id, trace_id, and span_id. Handlers pick it up
// with logger.FromContext.
//
// Mount after RequestLogging and Tracing so those fields are populated.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// The gateway forwards the authenticated user in X-User-ID.
			if userID := r.Header.Get("X-User-ID"); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
