package suppression

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/outreach-engine/internal/outreach"
)

func setupGuard(t *testing.T) (*Guard, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return NewGuard(outreach.NewStore(db)), mock, func() { db.Close() }
}

func TestIsSuppressedEmptyAddress(t *testing.T) {
	guard, _, cleanup := setupGuard(t)
	defer cleanup()

	// No query expected: the empty address is suppressed by definition.
	suppressed, err := guard.IsSuppressed(context.Background(), "  ")
	if err != nil {
		t.Fatalf("IsSuppressed() error: %v", err)
	}
	if !suppressed {
		t.Error("empty address should be suppressed")
	}
}

func TestIsSuppressedNormalizes(t *testing.T) {
	guard, mock, cleanup := setupGuard(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM suppressions`).
		WithArgs("mixed@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	suppressed, err := guard.IsSuppressed(context.Background(), " Mixed@Example.Com ")
	if err != nil {
		t.Fatalf("IsSuppressed() error: %v", err)
	}
	if !suppressed {
		t.Error("address should be suppressed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAddRejectsEmptyAddress(t *testing.T) {
	guard, _, cleanup := setupGuard(t)
	defer cleanup()

	if _, err := guard.Add(context.Background(), "", ReasonManual); err == nil {
		t.Error("Add() with empty address should error")
	}
}

func TestAddReportsCreation(t *testing.T) {
	guard, mock, cleanup := setupGuard(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO suppressions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO suppressions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := guard.Add(context.Background(), "a@x.com", ReasonUnsubscribeReply)
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if !created {
		t.Error("first Add() should report created")
	}

	created, err = guard.Add(context.Background(), "a@x.com", ReasonUnsubscribeReply)
	if err != nil {
		t.Fatalf("Add() repeat error: %v", err)
	}
	if created {
		t.Error("repeat Add() should not report created")
	}
}
