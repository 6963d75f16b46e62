package loadgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestRunSendsProfileRequests(t *testing.T) {
	var (
		mu    sync.Mutex
		paths = map[string]int{}
		auth  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.Method+" "+r.URL.Path]++
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res, err := Run(context.Background(), Config{
		BaseURL:     srv.URL,
		Profile:     "booking",
		Duration:    400 * time.Millisecond,
		RPS:         50,
		Concurrency: 2,
		Token:       "access",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.TotalRequests == 0 || res.Status2xx != res.TotalRequests {
		t.Fatalf("unexpected result: %+v", res)
	}
	mu.Lock()
	defer mu.Unlock()
	for p := range paths {
		switch p {
		case "GET /slots/available", "POST /slots/search", "GET /type-slots", "GET /bookings/me", "GET /orders/me":
		default:
			t.Fatalf("unexpected request %s", p)
		}
	}
	if auth != "Bearer access" {
		t.Fatalf("expected bearer token, got %q", auth)
	}
}

func TestRunRejectsUnknownProfile(t *testing.T) {
	if _, err := Run(context.Background(), Config{Profile: "nope", Duration: time.Millisecond}); err == nil {
		t.Fatal("expected unknown profile error")
	}
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 201: "2xx", 302: "3xx", 404: "4xx", 429: "4xx", 500: "5xx", 503: "5xx"}
	for code, want := range cases {
		if got := statusClass(code); got != want {
			t.Fatalf("statusClass(%d) = %s, want %s", code, got, want)
		}
	}
}
