package api

import (
	"net/http"

	"github.com/dukerupert/binbill/internal/catalog"
	"github.com/dukerupert/binbill/internal/handler"
)

// ReferenceHandler serves the state and LGA catalog so upload tooling can
// offer the same values rows are validated against.
type ReferenceHandler struct {
	catalog *catalog.Catalog
}

// NewReferenceHandler creates a new reference handler
func NewReferenceHandler(c *catalog.Catalog) *ReferenceHandler {
	return &ReferenceHandler{catalog: c}
}

type stateView struct {
	catalog.State
	HasLGAs bool `json:"hasLgas"`
}

// States handles GET /api/reference/states
func (h *ReferenceHandler) States(w http.ResponseWriter, r *http.Request) {
	states := h.catalog.States()
	out := make([]stateView, len(states))
	for i, s := range states {
		out[i] = stateView{State: s, HasLGAs: len(s.LGAs) > 0}
	}
	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

// LGAs handles GET /api/reference/states/{state}/lgas
//
// A known state without LGA data answers with an empty list: any LGA is
// accepted for it.
func (h *ReferenceHandler) LGAs(w http.ResponseWriter, r *http.Request) {
	state := r.PathValue("state")
	lgas, ok := h.catalog.LGAs(state)
	if !ok {
		handler.NotFoundResponse(w, r)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"state": h.catalog.NormalizeStateKey(state),
		"data":  lgas,
	})
}
