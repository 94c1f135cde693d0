package web

import (
	"net/http"

	"github.com/vbonduro/foodwatch/internal/service"
)

func (s *Server) handleListShopping(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListShopping(r.Context())
	if err != nil {
		s.fail(w, r, "list shopping items", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateShoppingItem(w http.ResponseWriter, r *http.Request) {
	var in service.ShoppingInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	item, err := s.service.AddShoppingItem(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create shopping item", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type statusRequest struct {
	Done *bool `json:"done" validate:"required"`
}

func (s *Server) handleSetShoppingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shopping item id")
		return
	}
	var req statusRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	item, err := s.service.SetShoppingDone(r.Context(), id, *req.Done)
	if err != nil {
		s.fail(w, r, "update shopping item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteShoppingItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shopping item id")
		return
	}
	if err := s.service.DeleteShoppingItem(r.Context(), id); err != nil {
		s.fail(w, r, "delete shopping item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.EstimateBasket(r.Context())
	if err != nil {
		s.fail(w, r, "estimate basket", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
