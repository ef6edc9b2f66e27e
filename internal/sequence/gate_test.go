package sequence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/suppression"
)

func setupGate(t *testing.T) (*Gate, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	store := outreach.NewStore(db)
	return NewGate(store, suppression.NewGuard(store)), mock, func() { db.Close() }
}

var sendCols = []string{"id", "campaign_id", "lead_id", "sequence_step", "sender_email",
	"subject", "body", "status", "message_id", "scheduled_at", "sent_at", "notes", "created_at"}

func pendingSend(leadID, campaignID uuid.UUID, step int) *outreach.EmailSend {
	return &outreach.EmailSend{
		ID:           uuid.New(),
		CampaignID:   campaignID,
		LeadID:       leadID,
		SequenceStep: step,
		Status:       outreach.SendPending,
	}
}

func TestGateRejectsMissingLead(t *testing.T) {
	gate, mock, cleanup := setupGate(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WillReturnError(sql.ErrNoRows)

	decision, err := gate.Evaluate(context.Background(), pendingSend(uuid.New(), uuid.New(), 1))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if decision.Eligible {
		t.Error("missing lead should be rejected")
	}
	if decision.Reason != ReasonNoLeadEmail {
		t.Errorf("reason = %q, want %q", decision.Reason, ReasonNoLeadEmail)
	}
}

func TestGateRejectsSuppressedBeforeRepliedCheck(t *testing.T) {
	gate, mock, cleanup := setupGate(t)
	defer cleanup()

	leadID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WillReturnRows(leadRow(leadID, "jane@acme.com"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM suppressions`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	// The replied and bounce checks must not run once suppression fails:
	// no further queries are expected.
	decision, err := gate.Evaluate(context.Background(), pendingSend(leadID, uuid.New(), 3))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if decision.Reason != ReasonSuppressed {
		t.Errorf("reason = %q, want %q", decision.Reason, ReasonSuppressed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGateRejectsAfterReply(t *testing.T) {
	gate, mock, cleanup := setupGate(t)
	defer cleanup()

	leadID, campaignID := uuid.New(), uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WillReturnRows(leadRow(leadID, "jane@acme.com"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM suppressions`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email_sends`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	decision, err := gate.Evaluate(context.Background(), pendingSend(leadID, campaignID, 2))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if decision.Reason != ReasonLeadAlreadyReplied {
		t.Errorf("reason = %q, want %q", decision.Reason, ReasonLeadAlreadyReplied)
	}
}

func TestGateRejectsAfterPreviousBounce(t *testing.T) {
	gate, mock, cleanup := setupGate(t)
	defer cleanup()

	leadID, campaignID := uuid.New(), uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WillReturnRows(leadRow(leadID, "jane@acme.com"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM suppressions`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email_sends`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM email_sends").
		WillReturnRows(sqlmock.NewRows(sendCols).
			AddRow(uuid.NewString(), campaignID.String(), leadID.String(), 1, "", "s", "b",
				outreach.SendBounced, "", time.Now().UTC(), time.Now().UTC(), "", time.Now().UTC()))

	decision, err := gate.Evaluate(context.Background(), pendingSend(leadID, campaignID, 2))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if decision.Reason != ReasonPreviousStepBounced {
		t.Errorf("reason = %q, want %q", decision.Reason, ReasonPreviousStepBounced)
	}
}

func TestGateStepOneSkipsBounceCheck(t *testing.T) {
	gate, mock, cleanup := setupGate(t)
	defer cleanup()

	leadID, campaignID := uuid.New(), uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WillReturnRows(leadRow(leadID, "jane@acme.com"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM suppressions`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email_sends`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// Step 1 has no predecessor; no step lookup should happen.
	decision, err := gate.Evaluate(context.Background(), pendingSend(leadID, campaignID, 1))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !decision.Eligible {
		t.Errorf("step 1 should be eligible, got reason %q", decision.Reason)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
