package handler

import (
	"net/http"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

type OrderHandler struct {
	orderSvc service.OrderServiceInterface
	errs     ErrorWriter
}

func NewOrderHandler(orderSvc service.OrderServiceInterface, errs ErrorWriter) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, errs: errs}
}

type reductionRequest struct {
	Amount     float64 `json:"reduction_amount" validate:"gte=0"`
	Percentage float64 `json:"reduction_percentage" validate:"gte=0,lte=100"`
}

func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	orders, err := h.orderSvc.Mine(r.Context(), actor.UserID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, orders, int64(len(orders)))
}

func (h *OrderHandler) Search(w http.ResponseWriter, r *http.Request) {
	state, ok := tableState(w, r)
	if !ok {
		return
	}
	page, err := h.orderSvc.Search(r.Context(), state)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.List(w, r, page.Items, page.Count)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orderSvc.Get(r.Context(), actor, id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, order)
}

func (h *OrderHandler) ApplyReduction(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req reductionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.orderSvc.ApplyReduction(r.Context(), id, service.ReductionInput{Amount: req.Amount, Percentage: req.Percentage})
	audit(r, "admin.order.reduction", "order", actor.UserID.String(), id.String(), err)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, order)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	err := h.orderSvc.Archive(r.Context(), actor, id)
	audit(r, "order.archive", "order", actor.UserID.String(), id.String(), err)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, "order archived", nil)
}
