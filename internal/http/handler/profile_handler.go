package handler

import (
	"net/http"
	"time"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

// ProfileHandler serves the addresses and experiences of the authenticated user.
type ProfileHandler struct {
	profileSvc service.ProfileServiceInterface
	errs       ErrorWriter
}

func NewProfileHandler(profileSvc service.ProfileServiceInterface, errs ErrorWriter) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc, errs: errs}
}

type addressRequest struct {
	Street  string `json:"street" validate:"required,max=128"`
	City    string `json:"city" validate:"required,max=128"`
	State   string `json:"state" validate:"max=128"`
	Country string `json:"country" validate:"required,max=128"`
	ZipCode string `json:"zip_code" validate:"required,max=16"`
}

func (req addressRequest) input() service.AddressInput {
	return service.AddressInput{Street: req.Street, City: req.City, State: req.State, Country: req.Country, ZipCode: req.ZipCode}
}

type experienceRequest struct {
	Title       string     `json:"title" validate:"required,max=128"`
	Description string     `json:"description" validate:"max=512"`
	Institution string     `json:"institution" validate:"max=128"`
	DateFrom    time.Time  `json:"date_from" validate:"required"`
	DateTo      *time.Time `json:"date_to"`
}

func (req experienceRequest) input() service.ExperienceInput {
	return service.ExperienceInput{
		Title:       req.Title,
		Description: req.Description,
		Institution: req.Institution,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
	}
}

func (h *ProfileHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	items, err := h.profileSvc.Addresses(r.Context(), actor.UserID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, items, int64(len(items)))
}

func (h *ProfileHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req addressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	addr, err := h.profileSvc.AddAddress(r.Context(), actor.UserID, req.input())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, addr)
}

func (h *ProfileHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req addressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	addr, err := h.profileSvc.UpdateAddress(r.Context(), actor.UserID, id, req.input())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, addr)
}

func (h *ProfileHandler) RemoveAddress(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.profileSvc.RemoveAddress(r.Context(), actor.UserID, id); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, "address removed", nil)
}

func (h *ProfileHandler) ListExperiences(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	items, err := h.profileSvc.Experiences(r.Context(), actor.UserID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, items, int64(len(items)))
}

func (h *ProfileHandler) AddExperience(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req experienceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	exp, err := h.profileSvc.AddExperience(r.Context(), actor.UserID, req.input())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, exp)
}

func (h *ProfileHandler) UpdateExperience(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req experienceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	exp, err := h.profileSvc.UpdateExperience(r.Context(), actor.UserID, id, req.input())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, exp)
}

func (h *ProfileHandler) RemoveExperience(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.profileSvc.RemoveExperience(r.Context(), actor.UserID, id); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, "experience removed", nil)
}
