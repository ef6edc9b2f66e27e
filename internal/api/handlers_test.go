package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/content"
	"github.com/ignite/outreach-engine/internal/outreach"
	"github.com/ignite/outreach-engine/internal/sequence"
	"github.com/ignite/outreach-engine/internal/suppression"
	"github.com/ignite/outreach-engine/internal/worker"
)

func setupTestServer(t *testing.T) (http.Handler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	cfg := config.Default()
	store := outreach.NewStore(db)
	guard := suppression.NewGuard(store)
	gen := content.NewTemplateGenerator(cfg.Sender)
	processor := worker.NewReplyProcessor(store, guard, gen, cfg.AutoReply)

	h := NewHandlers(store, guard, sequence.NewGenerator(store, guard),
		processor, worker.NewKicker(nil), nil, cfg)
	return SetupRoutes(h), mock, func() { db.Close() }
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	handler, _, cleanup := setupTestServer(t)
	defer cleanup()

	rec := doRequest(t, handler, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
	if body["redis"] != "disabled" {
		t.Errorf("redis = %v, want disabled", body["redis"])
	}
}

func TestCreateLeadValidation(t *testing.T) {
	handler, _, cleanup := setupTestServer(t)
	defer cleanup()

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"bundle_id": "b1"}`},
		{"missing bundle", `{"email": "a@x.com"}`},
		{"malformed json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodPost, "/api/leads/", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateLead(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE email").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO leads").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(t, handler, http.MethodPost, "/api/leads/",
		`{"email": "Jane@Acme.com", "first_name": "Jane", "bundle_id": "b1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["email"] != "jane@acme.com" {
		t.Errorf("email = %v, want normalized", body["email"])
	}
}

func TestCreateLeadDuplicate(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	leadID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "business_name",
		"industry", "location", "phone", "website", "source_platform", "specifications",
		"bundle_id", "status", "created_at"}).
		AddRow(leadID.String(), "Jane", "", "jane@acme.com", "", "", "", "", "", "", "", "b1",
			"new", time.Now().UTC())
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE email").WillReturnRows(rows)

	rec := doRequest(t, handler, http.MethodPost, "/api/leads/",
		`{"email": "jane@acme.com", "bundle_id": "b1"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	handler, _, cleanup := setupTestServer(t)
	defer cleanup()

	rec := doRequest(t, handler, http.MethodPost, "/api/campaigns/",
		`{"name": "Spring", "lead_bundle_ids": ["b1"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing body_template: status = %d, want 400", rec.Code)
	}
}

var campaignCols = []string{"id", "name", "subject_template", "body_template", "sender_name",
	"sender_email", "reply_to", "status", "lead_bundle_ids", "created_at"}

func TestLaunchCampaignRejectsActive(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	campaignID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE id").
		WillReturnRows(sqlmock.NewRows(campaignCols).
			AddRow(campaignID.String(), "Spring", "", "<p>b</p>", "", "", "",
				outreach.CampaignActive, "{b1}", time.Now().UTC()))

	rec := doRequest(t, handler, http.MethodPost, "/api/campaigns/"+campaignID.String()+"/launch", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLaunchCampaignNotFound(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE id").
		WillReturnError(sql.ErrNoRows)

	rec := doRequest(t, handler, http.MethodPost, "/api/campaigns/"+uuid.NewString()+"/launch", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPauseCampaignRequiresActive(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	campaignID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM campaigns WHERE id").
		WillReturnRows(sqlmock.NewRows(campaignCols).
			AddRow(campaignID.String(), "Spring", "", "<p>b</p>", "", "", "",
				outreach.CampaignDraft, "{b1}", time.Now().UTC()))

	rec := doRequest(t, handler, http.MethodPost, "/api/campaigns/"+campaignID.String()+"/pause", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUnsubscribe(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO suppressions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(t, handler, http.MethodGet, "/unsubscribe?email=jane%40acme.com", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type = %q, want html confirmation", ct)
	}
}

func TestUnsubscribeRepeatable(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	// The conflict no-op keeps repeated clicks safe.
	mock.ExpectExec("INSERT INTO suppressions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := doRequest(t, handler, http.MethodGet, "/unsubscribe?email=jane%40acme.com", "")
	if rec.Code != http.StatusOK {
		t.Errorf("repeat unsubscribe status = %d, want 200", rec.Code)
	}
}

func TestUnsubscribeMissingEmail(t *testing.T) {
	handler, _, cleanup := setupTestServer(t)
	defer cleanup()

	rec := doRequest(t, handler, http.MethodGet, "/unsubscribe", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSimulateReplyValidation(t *testing.T) {
	handler, _, cleanup := setupTestServer(t)
	defer cleanup()

	rec := doRequest(t, handler, http.MethodPost, "/api/simulate-reply",
		`{"from_address": "jane@acme.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSimulateReplyAccepted(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	// The async pipeline will look up the lead after the handler returns;
	// tolerate the query arriving in the background.
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE email").
		WillReturnError(sql.ErrNoRows)

	rec := doRequest(t, handler, http.MethodPost, "/api/simulate-reply",
		`{"from_address": "stranger@nowhere.com", "text": "hello"}`)
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	// Give the goroutine a moment so the db isn't closed underneath it.
	time.Sleep(50 * time.Millisecond)
}

func TestRejectReply(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	replyID, leadID := uuid.New(), uuid.New()
	rows := sqlmock.NewRows([]string{"id", "email_send_id", "lead_id", "raw_content", "category",
		"llm_response_draft", "approved", "dismissed", "delivered", "received_at", "responded_at"}).
		AddRow(replyID.String(), nil, leadID.String(), "text", outreach.CategoryNegative,
			"", false, false, false, time.Now().UTC(), nil)

	mock.ExpectQuery("SELECT (.+) FROM replies WHERE id").WillReturnRows(rows)
	mock.ExpectExec("UPDATE replies SET dismissed = TRUE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(t, handler, http.MethodPost, "/api/replies/"+replyID.String()+"/reject", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApproveReplySchedulesImmediateSend(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	replyID, leadID := uuid.New(), uuid.New()
	rows := sqlmock.NewRows([]string{"id", "email_send_id", "lead_id", "raw_content", "category",
		"llm_response_draft", "approved", "dismissed", "delivered", "received_at", "responded_at"}).
		AddRow(replyID.String(), nil, leadID.String(), "text", outreach.CategoryInterested,
			"drafted response", false, false, false, time.Now().UTC(), nil)

	mock.ExpectQuery("SELECT (.+) FROM replies WHERE id").WillReturnRows(rows)
	mock.ExpectExec("UPDATE replies SET llm_response_draft").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE replies SET approved = TRUE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reply_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(t, handler, http.MethodPost, "/api/replies/"+replyID.String()+"/approve",
		`{"edited_response": "My own wording."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApproveReplyPullsAutoScheduledSendForward(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	replyID, leadID := uuid.New(), uuid.New()
	// Already auto-approved with a delayed job pending; the human approval
	// must fold into that job and pull run_after forward to now.
	rows := sqlmock.NewRows([]string{"id", "email_send_id", "lead_id", "raw_content", "category",
		"llm_response_draft", "approved", "dismissed", "delivered", "received_at", "responded_at"}).
		AddRow(replyID.String(), nil, leadID.String(), "text", outreach.CategoryInterested,
			"drafted response", true, false, false, time.Now().UTC(), nil)

	mock.ExpectQuery("SELECT (.+) FROM replies WHERE id").WillReturnRows(rows)
	mock.ExpectExec("UPDATE replies SET approved = TRUE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DO UPDATE SET run_after = LEAST\(reply_jobs\.run_after, EXCLUDED\.run_after\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(t, handler, http.MethodPost, "/api/replies/"+replyID.String()+"/approve", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApprovalQueue(t *testing.T) {
	handler, mock, cleanup := setupTestServer(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "email", "first_name", "business_name", "category",
		"left", "llm_response_draft", "received_at"}).
		AddRow(uuid.NewString(), "jane@acme.com", "Jane", "Acme", outreach.CategoryInterested,
			"their reply", "our draft", time.Now().UTC())
	mock.ExpectQuery("SELECT (.+) FROM replies r").WillReturnRows(rows)

	rec := doRequest(t, handler, http.MethodGet, "/api/replies/queue", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 1 {
		t.Errorf("total = %d, want 1", body.Total)
	}
}
