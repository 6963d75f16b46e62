package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

type RoleHandler struct {
	roleSvc service.RoleServiceInterface
	errs    ErrorWriter
}

func NewRoleHandler(roleSvc service.RoleServiceInterface, errs ErrorWriter) *RoleHandler {
	return &RoleHandler{roleSvc: roleSvc, errs: errs}
}

type roleRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleSvc.List(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, roles, int64(len(roles)))
}

func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.roleSvc.Get(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, role)
}

func (h *RoleHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		response.Error(w, r, http.StatusBadRequest, "missing role name", nil)
		return
	}
	role, err := h.roleSvc.GetByName(r.Context(), name)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, role)
}

func (h *RoleHandler) CountUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	n, err := h.roleSvc.CountUsers(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, nil, n)
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	role, err := h.roleSvc.Create(r.Context(), req.Name)
	if err != nil {
		audit(r, "admin.role.create", "role", actor.UserID.String(), "", err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "admin.role.create", "role", actor.UserID.String(), role.ID.String(), nil)
	response.JSON(w, r, http.StatusCreated, role)
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	role, err := h.roleSvc.Rename(r.Context(), id, req.Name)
	if err != nil {
		audit(r, "admin.role.update", "role", actor.UserID.String(), id.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "admin.role.update", "role", actor.UserID.String(), id.String(), nil)
	response.JSON(w, r, http.StatusOK, role)
}

func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.roleSvc.Archive(r.Context(), id); err != nil {
		audit(r, "admin.role.archive", "role", actor.UserID.String(), id.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "admin.role.archive", "role", actor.UserID.String(), id.String(), nil)
	response.Message(w, r, http.StatusOK, "role archived", nil)
}
