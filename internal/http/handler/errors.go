package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

// ErrorWriter turns service errors into envelopes. Internal failures are logged
// and their message is only surfaced when ExposeInternal is set.
type ErrorWriter struct {
	ExposeInternal bool
}

func (e ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusTooManyRequests {
		var ra *service.RetryAfterError
		if errors.As(err, &ra) {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(ra.RetryAfter)))
		}
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg := http.StatusText(status)
		if e.ExposeInternal {
			msg = err.Error()
		}
		response.Error(w, r, status, msg, nil)
		return
	}
	response.Error(w, r, status, err.Error(), nil)
}

// statusOf maps error kinds onto HTTP statuses. Conflicts are reported as 400
// like any other rejected business rule.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func retryAfterSeconds(d time.Duration) int {
	s := int(d.Round(time.Second).Seconds())
	if s < 1 {
		return 1
	}
	return s
}
