package web

import (
	"net/http"
	"strings"

	"github.com/vbonduro/foodwatch/internal/service"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.service.ListProducts(r.Context(), strings.TrimSpace(r.URL.Query().Get("location")))
	if err != nil {
		s.fail(w, r, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	p, err := s.service.AddProduct(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := s.service.GetProduct(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var in service.ProductInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	p, err := s.service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := s.service.DeleteProduct(r.Context(), id); err != nil {
		s.fail(w, r, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type useRequest struct {
	Amount int `json:"amount" validate:"gte=0"`
}

func (s *Server) handleUseProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req useRequest
	// An empty body means one unit.
	if r.ContentLength != 0 && !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.service.UseProduct(r.Context(), id, req.Amount)
	if err != nil {
		s.fail(w, r, "use product", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMoveToShopping(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	item, err := s.service.MoveToShopping(r.Context(), id)
	if err != nil {
		s.fail(w, r, "move product to shopping list", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// decodeBody decodes without struct validation; the service validates its
// own input types and reports ErrInvalidInput.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeStrict(w, r, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
