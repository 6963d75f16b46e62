package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

const avatarFormField = "avatar"

type UserHandler struct {
	userSvc        service.UserServiceInterface
	avatarMaxBytes int64
	errs           ErrorWriter
}

func NewUserHandler(userSvc service.UserServiceInterface, avatarMaxBytes int64, errs ErrorWriter) *UserHandler {
	return &UserHandler{userSvc: userSvc, avatarMaxBytes: avatarMaxBytes, errs: errs}
}

type updateProfileRequest struct {
	FirstName       *string    `json:"first_name" validate:"omitempty,max=64"`
	LastName        *string    `json:"last_name" validate:"omitempty,max=64"`
	Title           *string    `json:"title" validate:"omitempty,max=128"`
	Description     *string    `json:"description" validate:"omitempty,max=1024"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	GenderID        *uuid.UUID `json:"gender_id"`
	AcceptMarketing *bool      `json:"accept_marketing"`
}

type setRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids" validate:"required,min=1"`
}

type setStatusRequest struct {
	StatusID uuid.UUID `json:"status_id" validate:"required"`
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	profile, err := h.userSvc.Profile(r.Context(), actor.UserID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	profile, err := h.userSvc.UpdateProfile(r.Context(), actor.UserID, service.UpdateProfileInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Title:           req.Title,
		Description:     req.Description,
		DateOfBirth:     req.DateOfBirth,
		GenderID:        req.GenderID,
		AcceptMarketing: req.AcceptMarketing,
	})
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

// UploadAvatar accepts a multipart form with the picture in the "avatar" field.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(h.avatarMaxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errs.Write(w, r, service.ErrAvatarTooLarge)
			return
		}
		response.Error(w, r, http.StatusBadRequest, "invalid multipart form", nil)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := r.FormFile(avatarFormField)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "missing avatar file", nil)
		return
	}
	defer file.Close()

	profile, err := h.userSvc.ReplaceAvatar(r.Context(), actor.UserID, file, header.Size)
	if err != nil {
		audit(r, "user.avatar.upload", "user", actor.UserID.String(), actor.UserID.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "user.avatar.upload", "user", actor.UserID.String(), actor.UserID.String(), nil)
	response.JSON(w, r, http.StatusOK, profile)
}

func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := h.userSvc.DeleteAvatar(r.Context(), actor.UserID); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "user.avatar.delete", "user", actor.UserID.String(), actor.UserID.String(), nil)
	response.Message(w, r, http.StatusOK, "avatar removed", nil)
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	state, ok := tableState(w, r)
	if !ok {
		return
	}
	page, err := h.userSvc.Search(r.Context(), state)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, page.Items, page.Count)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.userSvc.Get(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) SetRoles(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req setRolesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := h.userSvc.SetRoles(r.Context(), id, req.RoleIDs)
	if err != nil {
		audit(r, "admin.user.roles", "user", actor.UserID.String(), id.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "admin.user.roles", "user", actor.UserID.String(), id.String(), nil)
	response.JSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req setStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := h.userSvc.SetStatus(r.Context(), id, req.StatusID)
	if err != nil {
		audit(r, "admin.user.status", "user", actor.UserID.String(), id.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "admin.user.status", "user", actor.UserID.String(), id.String(), nil)
	response.JSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.userSvc.Archive(r.Context(), id); err != nil {
		audit(r, "admin.user.archive", "user", actor.UserID.String(), id.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "admin.user.archive", "user", actor.UserID.String(), id.String(), nil)
	response.Message(w, r, http.StatusOK, "user archived", nil)
}
