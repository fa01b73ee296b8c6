package chat

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/chatforge/chatforge-golang/internal/models"
)

func TestUsageGuardCheck(t *testing.T) {
	guard := &UsageGuard{}

	tests := []struct {
		name     string
		usage    int
		limit    int
		rejected bool
	}{
		{"under the limit", 5, 100, false},
		{"one below the limit", 99, 100, false},
		{"at the limit", 100, 100, true},
		{"over the limit", 101, 100, true},
		{"zero limit", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Check(&models.User{APIUsage: tt.usage, APILimit: tt.limit})
			if tt.rejected {
				if KindOf(err) != KindQuotaExceeded {
					t.Errorf("error kind = %v, want quota_exceeded (err: %v)", KindOf(err), err)
				}
			} else if err != nil {
				t.Errorf("Check rejected %d/%d: %v", tt.usage, tt.limit, err)
			}
		})
	}
}

func TestUsageGuardCommitIncrementsByOne(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	guard := &UsageGuard{DB: db}

	mock.ExpectExec(regexp.QuoteMeta("SET api_usage = api_usage + 1")).
		WithArgs(sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := guard.Commit(context.Background(), "user-1"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUsageGuardRecordInsertsLedgerRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	guard := &UsageGuard{DB: db}

	convID := "conv-1"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usage_tracking")).
		WithArgs(sqlmock.AnyArg(), "user-1", "conv-1", "claude-3 (via gpt-4)", 42, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := &models.UsageRecord{
		UserID:         "user-1",
		ConversationID: &convID,
		Model:          "claude-3 (via gpt-4)",
		TokensUsed:     42,
		CostCents:      0,
	}
	if err := guard.Record(context.Background(), rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.ID == "" {
		t.Error("Record did not assign an id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCostCentsIsLinearAndNonNegative(t *testing.T) {
	tests := []struct {
		model  string
		tokens int
		want   int
	}{
		{"gpt-4", 0, 0},
		{"gpt-4", 1000, 3},
		{"claude-3", 2000, 6},
		{"gpt-3.5-turbo", 1000, 1},
		{"gemini-pro", 500, 0},
	}

	for _, tt := range tests {
		if got := costCents(tt.model, tt.tokens); got != tt.want {
			t.Errorf("costCents(%q, %d) = %d, want %d", tt.model, tt.tokens, got, tt.want)
		}
	}
}
