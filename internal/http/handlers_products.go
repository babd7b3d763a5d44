package http

import (
	"net/http"
	"strconv"

	"spendtrack/internal/products"
)

// The product catalog is public; no identity is required to browse it.

func (s *Server) handleProductList(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "products.html", products.All())
}

func (s *Server) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.render(w, r, http.StatusNotFound, "error.html", errorData{Status: http.StatusNotFound, Message: "Not found."})
		return
	}

	product, ok := products.ByID(id)
	if !ok {
		s.render(w, r, http.StatusNotFound, "error.html", errorData{Status: http.StatusNotFound, Message: "Not found."})
		return
	}

	s.render(w, r, http.StatusOK, "product.html", product)
}
