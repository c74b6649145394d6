package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/me/rfdiff/internal/params"
	"github.com/me/rfdiff/pkg/model"
)

func (s *Server) handleListParameters(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	catalog := params.Catalog()

	if group := r.URL.Query().Get("group"); group != "" {
		filtered := make([]params.Parameter, 0, len(catalog))
		for _, p := range catalog {
			if string(p.Group) == group {
				filtered = append(filtered, p)
			}
		}
		catalog = filtered
	}
	respondOK(w, reqID, catalog)
}

func (s *Server) handleGetParameter(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	name := chi.URLParam(r, "name")

	p, ok := params.Lookup(name)
	if !ok {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("parameter", name))
		return
	}
	respondOK(w, reqID, p)
}
