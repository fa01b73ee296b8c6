package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge-golang/internal/models"
)

// UsageGuard enforces the per-user call quota and appends the usage
// ledger. The limit is soft by design: Check reads the caller-supplied
// snapshot and Commit increments the stored counter only when the turn's
// stream has finished, so concurrent turns can each pass the check
// against a stale count and overshoot the limit by a few calls. The
// counter converges after each turn commits exactly one increment.
type UsageGuard struct {
	DB *sql.DB
}

// Check compares the snapshot's consumed count against its ceiling.
// It does not re-fetch the row and reserves nothing.
func (g *UsageGuard) Check(user *models.User) error {
	if user.APIUsage >= user.APILimit {
		return turnErrorf(KindQuotaExceeded, "api usage %d has reached the limit %d", user.APIUsage, user.APILimit)
	}
	return nil
}

// Commit increments api_usage by one and stamps updated_at. It runs only
// from the coordinator's finalize step, never speculatively.
func (g *UsageGuard) Commit(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET api_usage = api_usage + 1, updated_at = ?
		WHERE id = ?`

	_, err := g.DB.ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to commit usage increment: %w", err)
	}
	return nil
}

// Record appends one row to the usage ledger. Rows are never updated.
func (g *UsageGuard) Record(ctx context.Context, rec *models.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO usage_tracking
		(id, user_id, conversation_id, model, tokens_used, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := g.DB.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.ConversationID, rec.Model,
		rec.TokensUsed, rec.CostCents, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}
