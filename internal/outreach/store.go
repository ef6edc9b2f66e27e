package outreach

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store provides all database operations for outreach entities.
// It is the only package-level component that speaks SQL; everything above
// it works with typed records.
type Store struct {
	db *sql.DB
}

// NewStore creates a new outreach store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// =============================================================================
// LEADS
// =============================================================================

// CreateLead inserts a new lead. The email is normalized before storage.
func (s *Store) CreateLead(ctx context.Context, lead *Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	lead.Email = NormalizeEmail(lead.Email)
	lead.CreatedAt = time.Now().UTC()
	if lead.Status == "" {
		lead.Status = "new"
	}

	query := `INSERT INTO leads (id, first_name, last_name, email, business_name, industry,
		location, phone, website, source_platform, specifications, bundle_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.db.ExecContext(ctx, query, lead.ID, lead.FirstName, lead.LastName, lead.Email,
		lead.BusinessName, lead.Industry, lead.Location, lead.Phone, lead.Website,
		lead.SourcePlatform, lead.Specifications, lead.BundleID, lead.Status, lead.CreatedAt)
	return err
}

const leadColumns = `id, first_name, last_name, email, business_name, industry, location,
	phone, website, source_platform, specifications, bundle_id, status, created_at`

func scanLead(row interface{ Scan(...interface{}) error }) (*Lead, error) {
	lead := &Lead{}
	err := row.Scan(&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.BusinessName,
		&lead.Industry, &lead.Location, &lead.Phone, &lead.Website, &lead.SourcePlatform,
		&lead.Specifications, &lead.BundleID, &lead.Status, &lead.CreatedAt)
	return lead, err
}

// GetLead retrieves a lead by ID. Returns (nil, nil) when not found.
func (s *Store) GetLead(ctx context.Context, leadID uuid.UUID) (*Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, leadID)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lead, err
}

// GetLeadByEmail retrieves a lead by normalized address. Returns (nil, nil) when not found.
func (s *Store) GetLeadByEmail(ctx context.Context, email string) (*Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE email = $1`, NormalizeEmail(email))
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lead, err
}

// ListLeads retrieves leads, optionally filtered to one bundle.
func (s *Store) ListLeads(ctx context.Context, bundleID string) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	args := []interface{}{}
	if bundleID != "" {
		query += ` WHERE bundle_id = $1`
		args = append(args, bundleID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// GetLeadsByBundleIDs retrieves all leads belonging to any of the given bundles.
func (s *Store) GetLeadsByBundleIDs(ctx context.Context, bundleIDs []string) ([]*Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE bundle_id = ANY($1)`, pq.Array(bundleIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateLeadStatus updates a lead's lifecycle status.
func (s *Store) UpdateLeadStatus(ctx context.Context, leadID uuid.UUID, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE leads SET status = $1 WHERE id = $2`, status, leadID)
	return err
}

// =============================================================================
// CAMPAIGNS
// =============================================================================

// CreateCampaign inserts a new campaign in draft status.
func (s *Store) CreateCampaign(ctx context.Context, c *Campaign) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now().UTC()
	if c.Status == "" {
		c.Status = CampaignDraft
	}

	query := `INSERT INTO campaigns (id, name, subject_template, body_template, sender_name,
		sender_email, reply_to, status, lead_bundle_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query, c.ID, c.Name, c.SubjectTemplate, c.BodyTemplate,
		c.SenderName, c.SenderEmail, c.ReplyTo, c.Status, pq.Array(c.LeadBundleIDs), c.CreatedAt)
	return err
}

// GetCampaign retrieves a campaign by ID. Returns (nil, nil) when not found.
func (s *Store) GetCampaign(ctx context.Context, campaignID uuid.UUID) (*Campaign, error) {
	query := `SELECT id, name, subject_template, body_template, sender_name, sender_email,
		reply_to, status, lead_bundle_ids, created_at FROM campaigns WHERE id = $1`

	c := &Campaign{}
	err := s.db.QueryRowContext(ctx, query, campaignID).Scan(&c.ID, &c.Name, &c.SubjectTemplate,
		&c.BodyTemplate, &c.SenderName, &c.SenderEmail, &c.ReplyTo, &c.Status,
		pq.Array(&c.LeadBundleIDs), &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListCampaigns retrieves all campaigns, newest first.
func (s *Store) ListCampaigns(ctx context.Context) ([]*Campaign, error) {
	query := `SELECT id, name, subject_template, body_template, sender_name, sender_email,
		reply_to, status, lead_bundle_ids, created_at FROM campaigns ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*Campaign
	for rows.Next() {
		c := &Campaign{}
		err := rows.Scan(&c.ID, &c.Name, &c.SubjectTemplate, &c.BodyTemplate, &c.SenderName,
			&c.SenderEmail, &c.ReplyTo, &c.Status, pq.Array(&c.LeadBundleIDs), &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// UpdateCampaignStatus transitions a campaign's status.
func (s *Store) UpdateCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET status = $1 WHERE id = $2`, status, campaignID)
	return err
}

// =============================================================================
// EMAIL SENDS
// =============================================================================

const sendColumns = `id, campaign_id, lead_id, sequence_step, sender_email, subject, body,
	status, message_id, scheduled_at, sent_at, notes, created_at`

func scanSend(row interface{ Scan(...interface{}) error }) (*EmailSend, error) {
	e := &EmailSend{}
	err := row.Scan(&e.ID, &e.CampaignID, &e.LeadID, &e.SequenceStep, &e.SenderEmail,
		&e.Subject, &e.Body, &e.Status, &e.MessageID, &e.ScheduledAt, &e.SentAt,
		&e.Notes, &e.CreatedAt)
	return e, err
}

// BulkCreateEmailSends inserts all sends for a campaign launch in one
// transaction. Launch is at-most-once per campaign (enforced by the
// campaign-status check upstream), so no conflict handling is needed here.
func (s *Store) BulkCreateEmailSends(ctx context.Context, sends []*EmailSend) error {
	if len(sends) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO email_sends
		(id, campaign_id, lead_id, sequence_step, status, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range sends {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = time.Now().UTC()
		if e.Status == "" {
			e.Status = SendPending
		}
		_, err := stmt.ExecContext(ctx, e.ID, e.CampaignID, e.LeadID, e.SequenceStep,
			e.Status, e.ScheduledAt, e.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetEmailSend retrieves one send by ID. Returns (nil, nil) when not found.
func (s *Store) GetEmailSend(ctx context.Context, sendID uuid.UUID) (*EmailSend, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sendColumns+` FROM email_sends WHERE id = $1`, sendID)
	e, err := scanSend(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// GetEmailSendByMessageID resolves a send from a transport message-id,
// used to thread inbound replies. Returns (nil, nil) when not found.
func (s *Store) GetEmailSendByMessageID(ctx context.Context, messageID string) (*EmailSend, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sendColumns+` FROM email_sends WHERE message_id = $1`, messageID)
	e, err := scanSend(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// GetDueEmailSends fetches pending sends whose scheduled_at falls within the
// lookahead window, oldest first, only for campaigns that are still active.
// Pausing a campaign therefore stops its pending sends without mutating them.
func (s *Store) GetDueEmailSends(ctx context.Context, limit int, lookahead time.Duration) ([]*EmailSend, error) {
	query := `SELECT e.id, e.campaign_id, e.lead_id, e.sequence_step, e.sender_email,
		e.subject, e.body, e.status, e.message_id, e.scheduled_at, e.sent_at, e.notes, e.created_at
		FROM email_sends e
		JOIN campaigns c ON c.id = e.campaign_id
		WHERE e.status = 'pending' AND e.scheduled_at <= $1 AND c.status = 'active'
		ORDER BY e.scheduled_at LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, time.Now().UTC().Add(lookahead), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sends []*EmailSend
	for rows.Next() {
		e, err := scanSend(rows)
		if err != nil {
			return nil, err
		}
		sends = append(sends, e)
	}
	return sends, rows.Err()
}

// CountEmailsSentToday counts sends delivered in the current UTC day.
// Replied sends still count: they went out before the reply arrived.
func (s *Store) CountEmailsSentToday(ctx context.Context) (int, error) {
	midnight := time.Now().UTC().Truncate(24 * time.Hour)

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_sends
		WHERE status IN ('sent', 'replied') AND sent_at >= $1`, midnight).Scan(&count)
	return count, err
}

// GetCampaignEmailSends retrieves all sends for one campaign.
func (s *Store) GetCampaignEmailSends(ctx context.Context, campaignID uuid.UUID) ([]*EmailSend, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sendColumns+` FROM email_sends WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sends []*EmailSend
	for rows.Next() {
		e, err := scanSend(rows)
		if err != nil {
			return nil, err
		}
		sends = append(sends, e)
	}
	return sends, rows.Err()
}

// LeadRepliedInCampaign reports whether any send for this (lead, campaign)
// pair has reached the replied status.
func (s *Store) LeadRepliedInCampaign(ctx context.Context, leadID, campaignID uuid.UUID) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_sends
		WHERE lead_id = $1 AND campaign_id = $2 AND status = 'replied'`,
		leadID, campaignID).Scan(&count)
	return count > 0, err
}

// GetPriorSubjects returns the subject lines of earlier steps for this
// (lead, campaign) pair, passed to the content generator as
// anti-repetition context.
func (s *Store) GetPriorSubjects(ctx context.Context, leadID, campaignID uuid.UUID, beforeStep int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subject FROM email_sends
		WHERE lead_id = $1 AND campaign_id = $2 AND sequence_step < $3 AND subject <> ''`,
		leadID, campaignID, beforeStep)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

// GetStepEmailSend retrieves the send for one (lead, campaign, step) triple.
// Returns (nil, nil) when no such row exists.
func (s *Store) GetStepEmailSend(ctx context.Context, leadID, campaignID uuid.UUID, step int) (*EmailSend, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sendColumns+` FROM email_sends
		WHERE lead_id = $1 AND campaign_id = $2 AND sequence_step = $3`,
		leadID, campaignID, step)
	e, err := scanSend(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// GetLatestSentEmailSend returns the most recently sent email for a lead
// across all campaigns, the best-effort fallback for reply threading.
// Returns (nil, nil) when the lead has never been sent anything.
func (s *Store) GetLatestSentEmailSend(ctx context.Context, leadID uuid.UUID) (*EmailSend, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sendColumns+` FROM email_sends
		WHERE lead_id = $1 AND status = 'sent' ORDER BY sent_at DESC LIMIT 1`, leadID)
	e, err := scanSend(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// MarkEmailSendSent records a successful delivery in a single write.
func (s *Store) MarkEmailSendSent(ctx context.Context, sendID uuid.UUID, subject, body, senderEmail, messageID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE email_sends
		SET subject = $1, body = $2, sender_email = $3, status = 'sent',
		    sent_at = $4, message_id = $5
		WHERE id = $6`,
		subject, body, senderEmail, time.Now().UTC(), messageID, sendID)
	return err
}

// MarkEmailSendFailed records a terminal failure with a machine-readable note.
// Failures are final: a later campaign step is a separate send, not a retry.
func (s *Store) MarkEmailSendFailed(ctx context.Context, sendID uuid.UUID, note string) error {
	note = Truncate(note, 250)
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_sends SET status = 'failed', notes = $1 WHERE id = $2`, note, sendID)
	return err
}

// MarkEmailSendReplied transitions a send to replied, which halts the
// remaining sequence steps for its (lead, campaign) pair via the send gate.
func (s *Store) MarkEmailSendReplied(ctx context.Context, sendID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_sends SET status = 'replied' WHERE id = $1`, sendID)
	return err
}

// MarkEmailSendBounced transitions a send to bounced.
func (s *Store) MarkEmailSendBounced(ctx context.Context, sendID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_sends SET status = 'bounced' WHERE id = $1`, sendID)
	return err
}

// =============================================================================
// REPLIES
// =============================================================================

// CreateReply inserts a new inbound reply record.
func (s *Store) CreateReply(ctx context.Context, r *Reply) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.ReceivedAt = time.Now().UTC()

	query := `INSERT INTO replies (id, email_send_id, lead_id, raw_content, category,
		llm_response_draft, approved, dismissed, delivered, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query, r.ID, r.EmailSendID, r.LeadID, r.RawContent,
		r.Category, r.Draft, r.Approved, r.Dismissed, r.Delivered, r.ReceivedAt)
	return err
}

const replyColumns = `id, email_send_id, lead_id, raw_content, category, llm_response_draft,
	approved, dismissed, delivered, received_at, responded_at`

func scanReply(row interface{ Scan(...interface{}) error }) (*Reply, error) {
	r := &Reply{}
	err := row.Scan(&r.ID, &r.EmailSendID, &r.LeadID, &r.RawContent, &r.Category,
		&r.Draft, &r.Approved, &r.Dismissed, &r.Delivered, &r.ReceivedAt, &r.RespondedAt)
	return r, err
}

// GetReply retrieves a reply by ID. Returns (nil, nil) when not found.
func (s *Store) GetReply(ctx context.Context, replyID uuid.UUID) (*Reply, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+replyColumns+` FROM replies WHERE id = $1`, replyID)
	r, err := scanReply(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetApprovalQueue lists replies awaiting human review, newest first,
// joined with lead display fields. Reply text is truncated for display.
func (s *Store) GetApprovalQueue(ctx context.Context) ([]*ApprovalQueueItem, error) {
	query := `SELECT r.id, l.email, l.first_name, l.business_name, r.category,
		LEFT(r.raw_content, 400), r.llm_response_draft, r.received_at
		FROM replies r
		JOIN leads l ON l.id = r.lead_id
		WHERE r.approved = FALSE AND r.dismissed = FALSE AND r.delivered = FALSE
		ORDER BY r.received_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ApprovalQueueItem
	for rows.Next() {
		item := &ApprovalQueueItem{}
		err := rows.Scan(&item.ReplyID, &item.LeadEmail, &item.LeadName, &item.BusinessName,
			&item.Category, &item.TheirReply, &item.Draft, &item.ReceivedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetApprovedUndelivered lists approved replies whose response has not gone
// out yet. The periodic sweep re-enqueues these for sending.
func (s *Store) GetApprovedUndelivered(ctx context.Context) ([]*Reply, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+replyColumns+` FROM replies
		WHERE approved = TRUE AND delivered = FALSE AND dismissed = FALSE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var replies []*Reply
	for rows.Next() {
		r, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

// SetReplyDraft stores (or overwrites) the drafted response on a reply.
func (s *Store) SetReplyDraft(ctx context.Context, replyID uuid.UUID, draft string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE replies SET llm_response_draft = $1 WHERE id = $2`, draft, replyID)
	return err
}

// ApproveReply marks a reply as approved for sending.
func (s *Store) ApproveReply(ctx context.Context, replyID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE replies SET approved = TRUE WHERE id = $1`, replyID)
	return err
}

// DismissReply removes a reply from the approval queue without sending.
func (s *Store) DismissReply(ctx context.Context, replyID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE replies SET dismissed = TRUE WHERE id = $1`, replyID)
	return err
}

// MarkReplyDelivered records that the drafted response went out.
func (s *Store) MarkReplyDelivered(ctx context.Context, replyID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE replies SET delivered = TRUE, responded_at = $1 WHERE id = $2`,
		time.Now().UTC(), replyID)
	return err
}

// =============================================================================
// SUPPRESSIONS
// =============================================================================

// IsSuppressed reports whether a normalized address is on the do-not-contact list.
func (s *Store) IsSuppressed(ctx context.Context, email string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM suppressions WHERE email_address = $1`,
		NormalizeEmail(email)).Scan(&count)
	return count > 0, err
}

// AddSuppression idempotently adds an address to the do-not-contact list.
// Returns true if a new row was created, false if the address was already
// suppressed (the original reason is never overwritten).
func (s *Store) AddSuppression(ctx context.Context, email, reason string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO suppressions (id, email_address, reason, created_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (email_address) DO NOTHING`,
		uuid.New(), NormalizeEmail(email), reason, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListSuppressions retrieves the full suppression list, newest first.
func (s *Store) ListSuppressions(ctx context.Context) ([]*Suppression, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email_address, reason, created_at FROM suppressions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sups []*Suppression
	for rows.Next() {
		sup := &Suppression{}
		if err := rows.Scan(&sup.ID, &sup.EmailAddress, &sup.Reason, &sup.CreatedAt); err != nil {
			return nil, err
		}
		sups = append(sups, sup)
	}
	return sups, rows.Err()
}

// =============================================================================
// REPLY JOBS
// =============================================================================

// EnqueueReplyJob creates a durable work item to send one reply at or after
// runAfter. Duplicate pending jobs for the same reply collapse to a single
// row keeping the earliest run_after, so a human approval pulls an
// auto-scheduled send forward instead of being dropped.
func (s *Store) EnqueueReplyJob(ctx context.Context, replyID uuid.UUID, runAfter time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO reply_jobs (id, reply_id, run_after, status, attempts, created_at)
		VALUES ($1, $2, $3, 'pending', 0, $4)
		ON CONFLICT (reply_id) WHERE status = 'pending'
		DO UPDATE SET run_after = LEAST(reply_jobs.run_after, EXCLUDED.run_after)`,
		uuid.New(), replyID, runAfter.UTC(), time.Now().UTC())
	return err
}

// ClaimDueReplyJobs atomically claims due pending jobs so overlapping sweep
// cycles never double-send the same reply.
func (s *Store) ClaimDueReplyJobs(ctx context.Context, limit int) ([]*ReplyJob, error) {
	query := `UPDATE reply_jobs SET status = 'claimed', attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM reply_jobs
			WHERE status = 'pending' AND run_after <= $1
			ORDER BY run_after LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, reply_id, run_after, status, attempts, created_at`

	rows, err := s.db.QueryContext(ctx, query, time.Now().UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ReplyJob
	for rows.Next() {
		job := &ReplyJob{}
		err := rows.Scan(&job.ID, &job.ReplyID, &job.RunAfter, &job.Status, &job.Attempts, &job.CreatedAt)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CompleteReplyJob marks a claimed job as done.
func (s *Store) CompleteReplyJob(ctx context.Context, jobID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE reply_jobs SET status = 'done' WHERE id = $1`, jobID)
	return err
}

// FailReplyJob marks a claimed job as failed. The reply itself keeps its
// state; the sweep re-enqueues approved undelivered replies, which is the
// retry path for transient transport failures.
func (s *Store) FailReplyJob(ctx context.Context, jobID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE reply_jobs SET status = 'failed' WHERE id = $1`, jobID)
	return err
}

// HasPendingReplyJob reports whether a live job already exists for a reply.
func (s *Store) HasPendingReplyJob(ctx context.Context, replyID uuid.UUID) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reply_jobs
		WHERE reply_id = $1 AND status IN ('pending', 'claimed')`, replyID).Scan(&count)
	return count > 0, err
}
