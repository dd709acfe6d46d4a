package httpapi

import (
	"net/http"

	"societyhub.org/internal/audit"
	"societyhub.org/internal/society"
)

func (a *API) CreateSociety(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var body struct {
		Name    string `json:"name"`
		Address string `json:"address,omitempty"`
		City    string `json:"city,omitempty"`
		State   string `json:"state,omitempty"`
		Pincode string `json:"pincode,omitempty"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	soc := &society.Society{
		Name:      body.Name,
		Address:   body.Address,
		City:      body.City,
		State:     body.State,
		Pincode:   body.Pincode,
		CreatedBy: p.UserID,
	}
	if err := a.societies.Create(r.Context(), soc); err != nil {
		respondDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "society.created", map[string]any{"society_id": soc.ID})
	writeJSON(w, http.StatusCreated, map[string]any{"society": soc})
}

func (a *API) GetSociety(w http.ResponseWriter, r *http.Request) {
	soc, err := a.societies.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"society": soc})
}

func (a *API) ListSocieties(w http.ResponseWriter, r *http.Request) {
	socs, err := a.societies.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"societies": socs, "count": len(socs)})
}
