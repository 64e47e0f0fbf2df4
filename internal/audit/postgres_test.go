package audit

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestPGAppend(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec(`insert into audit_log`).
		WithArgs("evt-1", "acct-1", ActionLoginSuccess, "203.0.113.9", "test-agent", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Append(context.Background(), &Entry{
		ID:        "evt-1",
		AccountID: "acct-1",
		Action:    ActionLoginSuccess,
		IP:        "203.0.113.9",
		UserAgent: "test-agent",
		CreatedAt: ts,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGAppendUnresolvedAccount(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec(`insert into audit_log`).
		WithArgs(sqlmock.AnyArg(), nil, ActionLoginFailed, "203.0.113.9", "", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &Entry{
		Action:    ActionLoginFailed,
		IP:        "203.0.113.9",
		CreatedAt: ts,
	}
	if err := store.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected generated entry id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
