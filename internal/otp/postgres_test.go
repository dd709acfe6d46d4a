package otp

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreIssueExpiresThenInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{
		ID:        "01TEST",
		Phone:     "9001001001",
		Code:      "123456",
		Purpose:   PurposeLogin,
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}

	mock.ExpectBegin()
	mock.ExpectExec("update otps set is_expired = true").
		WithArgs("9001001001", PurposeLogin).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into otps").
		WithArgs("01TEST", "", "9001001001", "", "123456", PurposeLogin, now, now.Add(10*time.Minute)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewPGStore(db)
	if err := store.Issue(context.Background(), rec); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreMarkUsedReturnsRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "phone_number", "email", "otp_code", "purpose",
		"is_used", "is_expired", "created_at", "expires_at", "verified_at",
	}).AddRow("01TEST", "", "9001001001", "", "123456", "LOGIN",
		true, false, now.Add(-5*time.Minute), now.Add(5*time.Minute), now)

	mock.ExpectQuery("update otps set is_used = true").
		WithArgs("9001001001", "123456", PurposeLogin, now).
		WillReturnRows(rows)

	store := NewPGStore(db)
	rec, err := store.MarkUsed(context.Background(), "9001001001", "123456", PurposeLogin, now)
	if err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if !rec.Used || rec.VerifiedAt == nil || !rec.VerifiedAt.Equal(now) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreMarkUsedNoMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	mock.ExpectQuery("update otps set is_used = true").
		WithArgs("9001001001", "000000", PurposeLogin, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewPGStore(db)
	if _, err := store.MarkUsed(context.Background(), "9001001001", "000000", PurposeLogin, now); err != ErrInvalidOrExpired {
		t.Fatalf("want ErrInvalidOrExpired, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreMarkExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	mock.ExpectExec("update otps set is_expired = true").
		WithArgs("9001001001", "123456", PurposeLogin, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGStore(db)
	flagged, err := store.MarkExpired(context.Background(), "9001001001", "123456", PurposeLogin, now)
	if err != nil {
		t.Fatalf("MarkExpired: %v", err)
	}
	if !flagged {
		t.Fatal("expected a record to be flagged")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
