package api

import (
	"net/http"

	"github.com/ignite/outreach-engine/internal/outreach"
)

type createLeadRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	BusinessName   string `json:"business_name"`
	Industry       string `json:"industry"`
	Location       string `json:"location"`
	Phone          string `json:"phone"`
	Website        string `json:"website"`
	SourcePlatform string `json:"source_platform"`
	Specifications string `json:"specifications"`
	BundleID       string `json:"bundle_id"`
}

// CreateLead ingests one lead.
func (h *Handlers) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}
	if req.BundleID == "" {
		respondError(w, http.StatusBadRequest, "bundle_id is required")
		return
	}

	existing, err := h.store.GetLeadByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check existing lead")
		return
	}
	if existing != nil {
		respondError(w, http.StatusConflict, "lead with this email already exists")
		return
	}

	lead := &outreach.Lead{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		BusinessName:   req.BusinessName,
		Industry:       req.Industry,
		Location:       req.Location,
		Phone:          req.Phone,
		Website:        req.Website,
		SourcePlatform: req.SourcePlatform,
		Specifications: req.Specifications,
		BundleID:       req.BundleID,
	}
	if err := h.store.CreateLead(r.Context(), lead); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create lead")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        lead.ID,
		"email":     lead.Email,
		"bundle_id": lead.BundleID,
	})
}

// ListLeads returns leads, optionally filtered with ?bundle_id=.
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.store.ListLeads(r.Context(), r.URL.Query().Get("bundle_id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	items := make([]map[string]interface{}, 0, len(leads))
	for _, lead := range leads {
		items = append(items, map[string]interface{}{
			"id":            lead.ID,
			"first_name":    lead.FirstName,
			"last_name":     lead.LastName,
			"email":         lead.Email,
			"business_name": lead.BusinessName,
			"industry":      lead.Industry,
			"bundle_id":     lead.BundleID,
			"status":        lead.Status,
			"created_at":    lead.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"leads": items,
		"total": len(items),
	})
}
