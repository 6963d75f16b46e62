package loadgen

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
	// Token is sent as a bearer token; without it authenticated routes answer 401.
	Token  string
	Client *http.Client
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
}

type request struct {
	method string
	path   string
	body   string
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	requests := requestsForProfile(cfg.Profile)
	if len(requests) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	rng := rand.New(rand.NewSource(cfg.Seed))

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, s2xx, s4xx, s5xx atomic.Int64
	jobs := make(chan request, cfg.Concurrency*2)
	var g errgroup.Group

	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for job := range jobs {
				req, err := http.NewRequestWithContext(ctx, job.method, baseURL+job.path, strings.NewReader(job.body))
				if err != nil {
					failures.Add(1)
					continue
				}
				if job.body != "" {
					req.Header.Set("Content-Type", "application/json")
				}
				if cfg.Token != "" {
					req.Header.Set("Authorization", "Bearer "+cfg.Token)
				}
				resp, err := client.Do(req)
				if err != nil {
					failures.Add(1)
					continue
				}
				_ = resp.Body.Close()
				total.Add(1)
				class := statusClass(resp.StatusCode)
				switch class {
				case "2xx":
					s2xx.Add(1)
				case "4xx":
					s4xx.Add(1)
				case "5xx":
					s5xx.Add(1)
				}
				observability.RecordLoadgenRequest(ctx, class, cfg.Profile)
			}
			return nil
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			select {
			case jobs <- requests[rng.Intn(len(requests))]:
			case <-ctx.Done():
				break loop
			}
		}
	}
	close(jobs)
	_ = g.Wait()
	return Result{
		TotalRequests: total.Load(),
		Failures:      failures.Load(),
		Status2xx:     s2xx.Load(),
		Status4xx:     s4xx.Load(),
		Status5xx:     s5xx.Load(),
	}, nil
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func requestsForProfile(profile string) []request {
	auth := []request{
		{method: http.MethodPost, path: "/auth/login", body: `{"email":"loadgen@booking.local","password":"wrong-password"}`},
		{method: http.MethodPost, path: "/auth/refresh"},
		{method: http.MethodPost, path: "/auth/forgot-password", body: `{"email":"loadgen@booking.local"}`},
	}
	booking := []request{
		{method: http.MethodGet, path: "/slots/available"},
		{method: http.MethodPost, path: "/slots/search", body: `{"first":0,"rows":10,"sorts":[{"field":"date_from","order":1}]}`},
		{method: http.MethodGet, path: "/type-slots"},
		{method: http.MethodGet, path: "/bookings/me"},
		{method: http.MethodGet, path: "/orders/me"},
	}
	switch strings.ToLower(profile) {
	case "", "mixed":
		return append(append([]request{{method: http.MethodGet, path: "/health/ready"}}, auth...), booking...)
	case "auth":
		return auth
	case "booking":
		return booking
	case "error-heavy":
		return []request{
			{method: http.MethodPost, path: "/auth/refresh"},
			{method: http.MethodGet, path: "/slots/not-a-uuid"},
			{method: http.MethodPost, path: "/auth/register", body: `{"email":"not-an-email"}`},
		}
	default:
		return nil
	}
}
