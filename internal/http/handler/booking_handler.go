package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

type BookingHandler struct {
	bookingSvc service.BookingServiceInterface
	errs       ErrorWriter
}

func NewBookingHandler(bookingSvc service.BookingServiceInterface, errs ErrorWriter) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc, errs: errs}
}

type bookingRequest struct {
	SlotID      uuid.UUID  `json:"slot_id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=128"`
	Description string     `json:"description" validate:"max=512"`
	OrderID     *uuid.UUID `json:"order_id"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req bookingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	booking, err := h.bookingSvc.Create(r.Context(), actor, service.BookingInput{
		SlotID:      req.SlotID,
		Title:       req.Title,
		Description: req.Description,
		OrderID:     req.OrderID,
	})
	if err != nil {
		audit(r, "booking.create", "slot", actor.UserID.String(), req.SlotID.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "booking.create", "booking", actor.UserID.String(), booking.ID.String(), nil)
	response.JSON(w, r, http.StatusCreated, booking)
}

func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	bookings, err := h.bookingSvc.Mine(r.Context(), actor.UserID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, bookings, int64(len(bookings)))
}

func (h *BookingHandler) Search(w http.ResponseWriter, r *http.Request) {
	state, ok := tableState(w, r)
	if !ok {
		return
	}
	page, err := h.bookingSvc.Search(r.Context(), state)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, page.Items, page.Count)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	booking, err := h.bookingSvc.Get(r.Context(), actor, id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	err := h.bookingSvc.Cancel(r.Context(), actor, id)
	audit(r, "booking.cancel", "booking", actor.UserID.String(), id.String(), err)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, "booking cancelled", nil)
}
