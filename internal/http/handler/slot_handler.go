package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

type SlotHandler struct {
	slotSvc service.SlotServiceInterface
	errs    ErrorWriter
}

func NewSlotHandler(slotSvc service.SlotServiceInterface, errs ErrorWriter) *SlotHandler {
	return &SlotHandler{slotSvc: slotSvc, errs: errs}
}

type slotRequest struct {
	DateFrom    time.Time `json:"date_from" validate:"required"`
	DateTo      time.Time `json:"date_to" validate:"required"`
	TypeID      uuid.UUID `json:"type_id" validate:"required"`
	Price       float64   `json:"price" validate:"gte=0"`
	Description string    `json:"description" validate:"max=512"`
	TeacherID   uuid.UUID `json:"teacher_id"`
}

func (req slotRequest) input() service.SlotInput {
	return service.SlotInput{
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		TypeID:      req.TypeID,
		Price:       req.Price,
		Description: req.Description,
		TeacherID:   req.TeacherID,
	}
}

func (h *SlotHandler) All(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slotSvc.All(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, slots, int64(len(slots)))
}

func (h *SlotHandler) Search(w http.ResponseWriter, r *http.Request) {
	state, ok := tableState(w, r)
	if !ok {
		return
	}
	page, err := h.slotSvc.Search(r.Context(), state)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, page.Items, page.Count)
}

func (h *SlotHandler) Available(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slotSvc.Available(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, slots, int64(len(slots)))
}

func (h *SlotHandler) ByTeacher(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := pathUUID(w, r, "teacherId")
	if !ok {
		return
	}
	slots, err := h.slotSvc.ByTeacher(r.Context(), teacherID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, slots, int64(len(slots)))
}

func (h *SlotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	slot, err := h.slotSvc.Get(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, slot)
}

func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req slotRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	slot, err := h.slotSvc.Create(r.Context(), actor, req.input())
	if err != nil {
		audit(r, "slot.create", "slot", actor.UserID.String(), "", err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "slot.create", "slot", actor.UserID.String(), slot.ID.String(), nil)
	response.JSON(w, r, http.StatusCreated, slot)
}

func (h *SlotHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req slotRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	slot, err := h.slotSvc.Update(r.Context(), actor, id, req.input())
	audit(r, "slot.update", "slot", actor.UserID.String(), id.String(), err)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, slot)
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	err := h.slotSvc.Delete(r.Context(), actor, id)
	audit(r, "slot.archive", "slot", actor.UserID.String(), id.String(), err)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, "slot archived", nil)
}
