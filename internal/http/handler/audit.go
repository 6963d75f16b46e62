package handler

import (
	"net/http"
	"strings"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
)

// audit records the outcome of a state changing request. The action is the event
// name without its leading namespace.
func audit(r *http.Request, event, targetType, actorID, targetID string, err error) {
	action := event
	if i := strings.IndexByte(event, '.'); i >= 0 {
		action = event[i+1:]
	}
	in := observability.AuditInput{
		EventName:   event,
		ActorUserID: actorID,
		TargetType:  targetType,
		TargetID:    targetID,
		Action:      action,
		Outcome:     "success",
	}
	if err != nil {
		in.Outcome = "failure"
		in.Reason = err.Error()
	}
	observability.Audit(r, in)
}
