package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// requestActor is filled by Authenticate deeper in the chain so the access log,
// which wraps it, can name the caller.
type requestActor struct {
	userID string
	roles  []string
}

const actorContextKey contextKey = "request_actor"

func noteActor(ctx context.Context, userID string, roles []string) {
	if a, ok := ctx.Value(actorContextKey).(*requestActor); ok {
		a.userID = userID
		a.roles = roles
	}
}

// StructuredRequestLogger writes one "http.request" record per request to the
// default slog logger. 429s log at warn and 5xx at error.
func StructuredRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		actor := &requestActor{}
		r = r.WithContext(context.WithValue(r.Context(), actorContextKey, actor))
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}

		attrs := []any{
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"client_ip", r.RemoteAddr,
		}
		if actor.userID != "" {
			attrs = append(attrs, "user_id", actor.userID, "roles", strings.Join(actor.roles, ","))
		}

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status == http.StatusTooManyRequests:
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "http.request", attrs...)
	})
}
