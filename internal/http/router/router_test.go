package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/health"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/handler"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/security"
)

type stubTokens map[string][]string

func (s stubTokens) ParseAccessToken(_ context.Context, raw string) (*security.Claims, error) {
	roles, ok := s[raw]
	if !ok {
		return nil, security.ErrInvalidToken
	}
	claims := &security.Claims{Roles: roles}
	claims.Subject = "6f1c2b1e-8d1a-4c57-9a53-5a2b1c9f0e11"
	return claims, nil
}

type failingChecker struct{}

func (failingChecker) Check(context.Context) health.CheckResult {
	return health.CheckResult{Name: "db", Healthy: false, Error: "connection refused"}
}

// newTestRouter wires handlers without services; every request below is
// answered by middleware or request validation before a service is reached.
func newTestRouter(t *testing.T, readiness *health.ProbeRunner) http.Handler {
	t.Helper()
	errs := handler.ErrorWriter{}
	return NewRouter(Dependencies{
		AuthHandler:      handler.NewAuthHandler(nil, security.NewCookieManager("", false), 7*24*time.Hour, "http://front.test", errs),
		UserHandler:      handler.NewUserHandler(nil, 1<<20, errs),
		ProfileHandler:   handler.NewProfileHandler(nil, errs),
		RoleHandler:      handler.NewRoleHandler(nil, errs),
		GenderHandler:    handler.NewLookupHandler[domain.Gender](nil, "gender", errs),
		StatusHandler:    handler.NewLookupHandler[domain.StatusAccount](nil, "status", errs),
		TypeSlotHandler:  handler.NewLookupHandler[domain.TypeSlot](nil, "type slot", errs),
		SlotHandler:      handler.NewSlotHandler(nil, errs),
		BookingHandler:   handler.NewBookingHandler(nil, errs),
		OrderHandler:     handler.NewOrderHandler(nil, errs),
		Tokens:           stubTokens{"admin": {domain.RoleAdmin}, "teacher": {domain.RoleTeacher}, "student": {domain.RoleStudent}},
		CORSOrigins:      []string{"http://front.test"},
		AuthRateLimitRPM: 100,
		APIRateLimitRPM:  1000,
		Readiness:        readiness,
	})
}

func serve(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterAccessControl(t *testing.T) {
	h := newTestRouter(t, nil)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{name: "liveness is public", method: http.MethodGet, path: "/health/live", want: http.StatusOK},
		{name: "readiness without checkers", method: http.MethodGet, path: "/health/ready", want: http.StatusOK},
		{name: "login reaches validation", method: http.MethodPost, path: "/auth/login", body: `{}`, want: http.StatusBadRequest},
		{name: "profile needs a token", method: http.MethodGet, path: "/users/me", want: http.StatusUnauthorized},
		{name: "unknown token", method: http.MethodGet, path: "/users/me", token: "forged", want: http.StatusUnauthorized},
		{name: "lookups need a token", method: http.MethodGet, path: "/genders", want: http.StatusUnauthorized},
		{name: "logout needs a token", method: http.MethodPost, path: "/auth/logout", want: http.StatusUnauthorized},
		{name: "student cannot create slots", method: http.MethodPost, path: "/slots", token: "student", body: `{}`, want: http.StatusForbidden},
		{name: "teacher reaches slot validation", method: http.MethodPost, path: "/slots", token: "teacher", body: `{}`, want: http.StatusBadRequest},
		{name: "teacher cannot manage roles", method: http.MethodPost, path: "/roles", token: "teacher", body: `{}`, want: http.StatusForbidden},
		{name: "admin reaches role validation", method: http.MethodPost, path: "/roles", token: "admin", body: `{}`, want: http.StatusBadRequest},
		{name: "student cannot search users", method: http.MethodPost, path: "/users/search", token: "student", want: http.StatusForbidden},
		{name: "student cannot search bookings", method: http.MethodPost, path: "/bookings/search", token: "student", want: http.StatusForbidden},
		{name: "student cannot apply reductions", method: http.MethodPut, path: "/orders/5b0f1f3e-5a0e-4a47-9f5e-0d9c55f6f3a1/reduction", token: "student", body: `{}`, want: http.StatusForbidden},
		{name: "admin gets a malformed path id rejected", method: http.MethodGet, path: "/users/not-a-uuid", token: "admin", want: http.StatusBadRequest},
		{name: "student cannot write lookups", method: http.MethodPost, path: "/type-slots", token: "student", body: `{}`, want: http.StatusForbidden},
		{name: "admin reaches lookup validation", method: http.MethodPost, path: "/statuses", token: "admin", body: `{}`, want: http.StatusBadRequest},
		{name: "unknown route", method: http.MethodGet, path: "/nope", want: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(h, tc.method, tc.path, tc.token, tc.body)
			if rr.Code != tc.want {
				t.Fatalf("%s %s: expected %d, got %d: %s", tc.method, tc.path, tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestRouterReadinessReportsFailingChecks(t *testing.T) {
	h := newTestRouter(t, health.NewProbeRunner(time.Second, 0, failingChecker{}))

	rr := serve(h, http.MethodGet, "/health/ready", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var env struct {
		Status int `json:"status"`
		Data   struct {
			Checks []health.CheckResult `json:"checks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data.Checks) != 1 || env.Data.Checks[0].Healthy {
		t.Fatalf("expected one failing check, got %+v", env.Data.Checks)
	}
}

func TestRouterBodyLimit(t *testing.T) {
	h := newTestRouter(t, nil)
	body := `{"email":"` + strings.Repeat("a", 2<<20) + `"}`

	rr := serve(h, http.MethodPost, "/auth/register", "", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "exceeds") {
		t.Fatalf("expected size error, got %s", rr.Body.String())
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	h := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://front.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://front.test" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allowed origin, got %q", got)
	}
}

func TestRouterAuthRateLimit(t *testing.T) {
	errs := handler.ErrorWriter{}
	h := NewRouter(Dependencies{
		AuthHandler:      handler.NewAuthHandler(nil, security.NewCookieManager("", false), time.Hour, "", errs),
		UserHandler:      handler.NewUserHandler(nil, 1<<20, errs),
		ProfileHandler:   handler.NewProfileHandler(nil, errs),
		RoleHandler:      handler.NewRoleHandler(nil, errs),
		GenderHandler:    handler.NewLookupHandler[domain.Gender](nil, "gender", errs),
		StatusHandler:    handler.NewLookupHandler[domain.StatusAccount](nil, "status", errs),
		TypeSlotHandler:  handler.NewLookupHandler[domain.TypeSlot](nil, "type slot", errs),
		SlotHandler:      handler.NewSlotHandler(nil, errs),
		BookingHandler:   handler.NewBookingHandler(nil, errs),
		OrderHandler:     handler.NewOrderHandler(nil, errs),
		Tokens:           stubTokens{},
		AuthRateLimitRPM: 2,
		APIRateLimitRPM:  100,
	})

	for i := 0; i < 2; i++ {
		if rr := serve(h, http.MethodPost, "/auth/login", "", `{}`); rr.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: expected 400, got %d", i+1, rr.Code)
		}
	}
	rr := serve(h, http.MethodPost, "/auth/login", "", `{}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if rr := serve(h, http.MethodGet, "/health/live", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("auth limit must not throttle other routes, got %d", rr.Code)
	}
}
