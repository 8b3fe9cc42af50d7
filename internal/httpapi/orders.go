package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
	"github.com/vladislavdragonenkov/ordersvc/internal/validation"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := make([]orderResponse, 0, len(list))
	for _, d := range list {
		resp = append(resp, toOrderResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	details, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(details))
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd := domain.CreateOrderCommand{CustomerCode: req.CustomerCode, Items: toItems(req.Items)}
	if err := validation.CreateOrder(cmd); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.orders.Create(r.Context(), cmd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createOrderResponse{
		OrderID:   result.OrderID,
		Total:     Money(result.Total),
		OrderDate: result.OrderDate,
	})
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OrderID != nil && *req.OrderID != id {
		writeValidation(w, "order_id in body does not match order id in path")
		return
	}

	cmd := domain.UpdateOrderCommand{OrderID: id, CustomerCode: req.CustomerCode, Items: toItems(req.Items)}
	if err := validation.UpdateOrder(cmd); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.orders.Update(r.Context(), cmd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updateOrderResponse{
		OrderID:   result.OrderID,
		Total:     Money(result.Total),
		UpdatedAt: result.UpdatedAt,
	})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
