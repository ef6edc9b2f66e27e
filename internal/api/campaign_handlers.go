package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/worker"
)

type createCampaignRequest struct {
	Name            string   `json:"name"`
	SubjectTemplate string   `json:"subject_template"`
	BodyTemplate    string   `json:"body_template"`
	SenderName      string   `json:"sender_name"`
	SenderEmail     string   `json:"sender_email"`
	ReplyTo         string   `json:"reply_to"`
	LeadBundleIDs   []string `json:"lead_bundle_ids"`
}

// CreateCampaign creates a campaign in draft status.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.LeadBundleIDs) == 0 {
		respondError(w, http.StatusBadRequest, "lead_bundle_ids is required")
		return
	}
	if req.BodyTemplate == "" {
		respondError(w, http.StatusBadRequest, "body_template is required")
		return
	}

	campaign := &outreach.Campaign{
		Name:            req.Name,
		SubjectTemplate: req.SubjectTemplate,
		BodyTemplate:    req.BodyTemplate,
		SenderName:      req.SenderName,
		SenderEmail:     req.SenderEmail,
		ReplyTo:         req.ReplyTo,
		LeadBundleIDs:   req.LeadBundleIDs,
	}
	if err := h.store.CreateCampaign(r.Context(), campaign); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     campaign.ID,
		"name":   campaign.Name,
		"status": campaign.Status,
	})
}

// ListCampaigns returns all campaigns, newest first.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.store.ListCampaigns(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	items := make([]map[string]interface{}, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, map[string]interface{}{
			"id":              c.ID,
			"name":            c.Name,
			"status":          c.Status,
			"lead_bundle_ids": c.LeadBundleIDs,
			"created_at":      c.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": items,
		"total":     len(items),
	})
}

// LaunchCampaign activates a draft campaign, fans out its sequence, and
// triggers an immediate dispatch cycle.
func (h *Handlers) LaunchCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.campaignFromPath(w, r)
	if !ok {
		return
	}
	if campaign.Status == outreach.CampaignActive {
		respondError(w, http.StatusBadRequest, "campaign is already active")
		return
	}
	if len(campaign.LeadBundleIDs) == 0 {
		respondError(w, http.StatusBadRequest, "campaign has no lead bundles")
		return
	}

	leads, err := h.store.GetLeadsByBundleIDs(r.Context(), campaign.LeadBundleIDs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve leads")
		return
	}
	if len(leads) == 0 {
		respondError(w, http.StatusBadRequest, "campaign has no eligible leads")
		return
	}

	previousStatus := campaign.Status
	if err := h.store.UpdateCampaignStatus(r.Context(), campaign.ID, outreach.CampaignActive); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to activate campaign")
		return
	}

	leadIDs := make([]uuid.UUID, 0, len(leads))
	for _, lead := range leads {
		leadIDs = append(leadIDs, lead.ID)
	}

	result, err := h.generator.Enqueue(r.Context(), campaign.ID, leadIDs)
	if err != nil {
		// Roll the status back so the launch can be retried cleanly.
		if revertErr := h.store.UpdateCampaignStatus(r.Context(), campaign.ID, previousStatus); revertErr != nil {
			log.Printf("[API] Failed to revert campaign %s status: %v", campaign.ID, revertErr)
		}
		respondError(w, http.StatusInternalServerError, "failed to generate sequence")
		return
	}

	h.kicker.Kick(r.Context(), worker.KickDispatch)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id":        campaign.ID,
		"status":             outreach.CampaignActive,
		"total_leads":        len(leads),
		"suppressed_skipped": result.Skipped,
		"emails_queued":      result.Queued,
	})
}

// PauseCampaign stops dispatching a campaign's pending sends. The sends
// themselves are untouched; the dispatcher's campaign-status filter holds
// them back until resume.
func (h *Handlers) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	h.transitionCampaign(w, r, outreach.CampaignActive, outreach.CampaignPaused)
}

// ResumeCampaign reactivates a paused campaign.
func (h *Handlers) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	h.transitionCampaign(w, r, outreach.CampaignPaused, outreach.CampaignActive)
}

func (h *Handlers) transitionCampaign(w http.ResponseWriter, r *http.Request, from, to string) {
	campaign, ok := h.campaignFromPath(w, r)
	if !ok {
		return
	}
	if campaign.Status != from {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("campaign is %s, expected %s", campaign.Status, from))
		return
	}
	if err := h.store.UpdateCampaignStatus(r.Context(), campaign.ID, to); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update campaign status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id": campaign.ID,
		"status":      to,
	})
}

// CampaignAnalytics aggregates send outcomes per step.
func (h *Handlers) CampaignAnalytics(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.campaignFromPath(w, r)
	if !ok {
		return
	}

	sends, err := h.store.GetCampaignEmailSends(r.Context(), campaign.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load sends")
		return
	}

	analytics := outreach.CampaignAnalytics{
		CampaignName: campaign.Name,
		ByStep:       make(map[int]outreach.StepStats),
	}
	replied, bounced := 0, 0
	for _, send := range sends {
		stats := analytics.ByStep[send.SequenceStep]
		stats.Queued++
		analytics.TotalQueued++

		switch send.Status {
		case outreach.SendSent:
			stats.Sent++
			analytics.TotalSent++
		case outreach.SendReplied:
			// Replied sends went out first.
			stats.Sent++
			stats.Replied++
			analytics.TotalSent++
			replied++
		case outreach.SendBounced:
			stats.Sent++
			analytics.TotalSent++
			bounced++
		case outreach.SendFailed:
			stats.Failed++
			analytics.TotalFailed++
		}
		analytics.ByStep[send.SequenceStep] = stats
	}

	analytics.ReplyRate = rate(replied, analytics.TotalSent)
	analytics.BounceRate = rate(bounced, analytics.TotalSent)
	respondJSON(w, http.StatusOK, analytics)
}

func rate(part, whole int) string {
	if whole == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(whole)*100)
}

// campaignFromPath resolves the {campaignID} URL parameter, writing the
// error response itself when resolution fails.
func (h *Handlers) campaignFromPath(w http.ResponseWriter, r *http.Request) (*outreach.Campaign, bool) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return nil, false
	}
	campaign, err := h.store.GetCampaign(r.Context(), campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load campaign")
		return nil, false
	}
	if campaign == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return nil, false
	}
	return campaign, true
}
