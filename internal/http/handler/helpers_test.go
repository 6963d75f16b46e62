package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/middleware"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/security"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int64          `json:"count"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Status != rr.Code {
		t.Fatalf("envelope status %d does not match response code %d", env.Status, rr.Code)
	}
	return env
}

func withActor(r *http.Request, id uuid.UUID, roles ...string) *http.Request {
	claims := &security.Claims{Roles: roles}
	claims.Subject = id.String()
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
