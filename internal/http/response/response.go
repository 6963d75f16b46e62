package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope wraps every body the API writes, successful or not.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int64 `json:"count,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, Envelope{Status: status, Message: http.StatusText(status), Data: data})
}

// List writes one page of a collection together with the number of rows matching
// before pagination.
func List(w http.ResponseWriter, r *http.Request, data any, count int64) {
	write(w, r, Envelope{Status: http.StatusOK, Message: http.StatusText(http.StatusOK), Data: data, Count: &count})
}

func Message(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	write(w, r, Envelope{Status: status, Message: message, Data: data})
}

func Error(w http.ResponseWriter, r *http.Request, status int, message string, details any) {
	write(w, r, Envelope{Status: status, Message: message, Data: details})
}

func write(w http.ResponseWriter, r *http.Request, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.Status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.WarnContext(r.Context(), "response encode failed", "status", env.Status, "error", err)
	}
}
