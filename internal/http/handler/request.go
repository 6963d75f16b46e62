package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/middleware"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and runs struct validation on it.
// On failure the 400 envelope has already been written and false is returned.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		response.Error(w, r, http.StatusBadRequest, err.Error(), nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.Error(w, r, http.StatusBadRequest, "validation failed", fieldErrors(verrs))
			return false
		}
		response.Error(w, r, http.StatusBadRequest, err.Error(), nil)
		return false
	}
	return true
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return fmt.Errorf("invalid request body: %w", err)
		}
	}
	return nil
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		switch fe.Tag() {
		case "required":
			out[name] = "is required"
		case "email":
			out[name] = "must be a valid email"
		case "min":
			out[name] = "must be at least " + fe.Param()
		case "max":
			out[name] = "must be at most " + fe.Param()
		case "gtfield":
			out[name] = "must be after " + fe.Param()
		case "oneof":
			out[name] = "must be one of " + fe.Param()
		default:
			out[name] = "failed " + fe.Tag() + " check"
		}
	}
	return out
}

// tableState decodes a search body. An empty body is an unfiltered first page.
func tableState(w http.ResponseWriter, r *http.Request) (repository.TableState, bool) {
	var state repository.TableState
	if r.ContentLength == 0 {
		return state, true
	}
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, r, http.StatusBadRequest, "invalid table state: "+err.Error(), nil)
		return state, false
	}
	return state, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom builds the service actor from the verified access token claims.
func actorFrom(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "missing auth context", nil)
		return service.Actor{}, false
	}
	id, err := claims.UserID()
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "invalid subject", nil)
		return service.Actor{}, false
	}
	return service.Actor{UserID: id, Roles: claims.Roles}, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
