package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// requestLogger logs one line per request once the handler returns.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			owner := &ownerSlot{}
			next.ServeHTTP(ww, r.WithContext(withOwnerSlot(r.Context(), owner)))
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if owner.id != "" {
				fields = append(fields, zap.String("owner", owner.id))
			}
			switch {
			case status >= 500:
				log.Error("request", fields...)
			case status >= 400:
				log.Info("request", fields...)
			default:
				log.Debug("request", fields...)
			}
		})
	}
}

// ownerSlot lets the auth middleware, which runs inside the logger, report
// the caller back to it.
type ownerSlot struct{ id string }

type ownerSlotKey struct{}

func withOwnerSlot(ctx context.Context, s *ownerSlot) context.Context {
	return context.WithValue(ctx, ownerSlotKey{}, s)
}

func recordOwner(ctx context.Context, ownerID string) {
	if s, ok := ctx.Value(ownerSlotKey{}).(*ownerSlot); ok {
		s.id = ownerID
	}
}
