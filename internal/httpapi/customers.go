package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/ordersvc/internal/domain"
	"github.com/vladislavdragonenkov/ordersvc/internal/validation"
)

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	list, err := h.customers.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := make([]customerResponse, 0, len(list))
	for _, c := range list {
		resp = append(resp, toCustomerResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd := domain.CreateCustomerCommand{Code: req.Code, Name: req.Name, NationalID: req.NationalID}
	if err := validation.CreateCustomer(cmd); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := h.customers.Create(r.Context(), cmd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createCustomerResponse{Message: "customer created", CustomerID: id})
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req customerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd := domain.UpdateCustomerCommand{ID: id, Code: req.Code, Name: req.Name, NationalID: req.NationalID}
	if err := validation.UpdateCustomer(cmd); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.customers.Update(r.Context(), cmd); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "customer updated"})
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.customers.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "customer deleted"})
}
