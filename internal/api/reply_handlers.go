package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/suppression"
	"github.com/ignite/outreach-engine/internal/worker"
)

type simulateReplyRequest struct {
	FromAddress string `json:"from_address"`
	Text        string `json:"text"`
	InReplyToID string `json:"in_reply_to_id"`
}

// SimulateReply feeds a synthetic inbound message through the reply
// pipeline. Processing is asynchronous, matching how a real mailbox webhook
// would behave; the response only acknowledges receipt.
func (h *Handlers) SimulateReply(w http.ResponseWriter, r *http.Request) {
	var req simulateReplyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FromAddress == "" {
		respondError(w, http.StatusBadRequest, "from_address is required")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		err := h.processor.Process(ctx, worker.InboundReply{
			FromAddress:        req.FromAddress,
			Text:               req.Text,
			InReplyToMessageID: req.InReplyToID,
		})
		if err != nil {
			log.Printf("[API] Simulated reply from %s failed: %v",
				logger.RedactEmail(req.FromAddress), err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "processing",
	})
}

// ApprovalQueue lists replies awaiting human review.
func (h *Handlers) ApprovalQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.GetApprovalQueue(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load approval queue")
		return
	}

	queue := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		queue = append(queue, map[string]interface{}{
			"reply_id":      item.ReplyID,
			"lead_email":    item.LeadEmail,
			"lead_name":     item.LeadName,
			"business_name": item.BusinessName,
			"category":      item.Category,
			"their_reply":   item.TheirReply,
			"draft":         item.Draft,
			"received_at":   item.ReceivedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"queue": queue,
		"total": len(queue),
	})
}

type approveReplyRequest struct {
	EditedResponse string `json:"edited_response"`
}

// ApproveReply signs off on a drafted response, optionally replacing the
// draft text, and schedules the send immediately.
func (h *Handlers) ApproveReply(w http.ResponseWriter, r *http.Request) {
	reply, ok := h.replyFromPath(w, r)
	if !ok {
		return
	}
	if reply.Delivered {
		respondError(w, http.StatusBadRequest, "reply has already been sent")
		return
	}
	if reply.Dismissed {
		respondError(w, http.StatusBadRequest, "reply was dismissed")
		return
	}

	var req approveReplyRequest
	// Body is optional; an empty body means approve as drafted.
	_ = decodeBody(r, &req)

	if req.EditedResponse != "" {
		if err := h.store.SetReplyDraft(r.Context(), reply.ID, req.EditedResponse); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to store edited draft")
			return
		}
	} else if reply.Draft == "" {
		respondError(w, http.StatusBadRequest, "reply has no draft; provide edited_response")
		return
	}

	if err := h.store.ApproveReply(r.Context(), reply.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to approve reply")
		return
	}
	// Human already reviewed: no human-pacing delay.
	if err := h.store.EnqueueReplyJob(r.Context(), reply.ID, time.Now().UTC()); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to schedule send")
		return
	}
	h.kicker.Kick(r.Context(), worker.KickReplies)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reply_id": reply.ID,
		"status":   "approved",
	})
}

// RejectReply removes a reply from the approval queue without sending.
func (h *Handlers) RejectReply(w http.ResponseWriter, r *http.Request) {
	reply, ok := h.replyFromPath(w, r)
	if !ok {
		return
	}
	if reply.Delivered {
		respondError(w, http.StatusBadRequest, "reply has already been sent")
		return
	}

	if err := h.store.DismissReply(r.Context(), reply.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to dismiss reply")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reply_id": reply.ID,
		"status":   "dismissed",
	})
}

// Unsubscribe handles the footer link. Idempotent and safe for addresses
// the system has never seen.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	if _, err := h.guard.Add(r.Context(), email, suppression.ReasonUnsubscribeLinkClick); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to process unsubscribe")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("<html><body><h2>You've been unsubscribed.</h2><p>You will not receive further emails from us.</p></body></html>"))
}

// ListSuppressions returns the do-not-contact list.
func (h *Handlers) ListSuppressions(w http.ResponseWriter, r *http.Request) {
	sups, err := h.guard.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list suppressions")
		return
	}

	items := make([]map[string]interface{}, 0, len(sups))
	for _, sup := range sups {
		items = append(items, map[string]interface{}{
			"email_address": sup.EmailAddress,
			"reason":        sup.Reason,
			"created_at":    sup.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"suppressions": items,
		"total":        len(items),
	})
}

func (h *Handlers) replyFromPath(w http.ResponseWriter, r *http.Request) (*outreach.Reply, bool) {
	replyID, err := uuid.Parse(chi.URLParam(r, "replyID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid reply id")
		return nil, false
	}
	reply, err := h.store.GetReply(r.Context(), replyID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load reply")
		return nil, false
	}
	if reply == nil {
		respondError(w, http.StatusNotFound, "reply not found")
		return nil, false
	}
	return reply, true
}
