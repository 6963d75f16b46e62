package handler

import (
	"net/http"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

// LookupHandler exposes one reference table (genders, account statuses or slot
// types). Kind names the table in audit records.
type LookupHandler[T any] struct {
	svc  service.LookupServiceInterface[T]
	kind string
	errs ErrorWriter
}

func NewLookupHandler[T any](svc service.LookupServiceInterface[T], kind string, errs ErrorWriter) *LookupHandler[T] {
	return &LookupHandler[T]{svc: svc, kind: kind, errs: errs}
}

type lookupRequest struct {
	Name  string `json:"name" validate:"required,max=64"`
	Color string `json:"color" validate:"omitempty,max=16"`
	Icon  string `json:"icon" validate:"omitempty,max=256"`
}

func (req lookupRequest) input() service.LookupInput {
	return service.LookupInput{Name: req.Name, Color: req.Color, Icon: req.Icon}
}

func (h *LookupHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, items, int64(len(items)))
}

func (h *LookupHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, item)
}

func (h *LookupHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req lookupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	item, err := h.svc.Create(r.Context(), req.input())
	audit(r, "admin."+h.kind+".create", h.kind, actor.UserID.String(), "", err)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, item)
}

func (h *LookupHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req lookupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	item, err := h.svc.Update(r.Context(), id, req.input())
	audit(r, "admin."+h.kind+".update", h.kind, actor.UserID.String(), id.String(), err)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, item)
}

func (h *LookupHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	err := h.svc.Archive(r.Context(), id)
	audit(r, "admin."+h.kind+".archive", h.kind, actor.UserID.String(), id.String(), err)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, h.kind+" archived", nil)
}
