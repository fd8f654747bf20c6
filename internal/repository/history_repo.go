package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"replyflow/internal/model"
)

type HistoryRepository struct {
	db *pgxpool.Pool
}

func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record appends a history entry. Entries are never updated.
func (r *HistoryRepository) Record(ctx context.Context, h *model.ReplyHistory) error {
	query := `
        INSERT INTO reply_history (id, user_id, email_id, rule_id, reply_content, sent_at, successful, error_message)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
    `
	_, err := r.db.Exec(ctx, query,
		h.ID,
		h.UserID,
		h.EmailID,
		h.RuleID,
		h.ReplyContent,
		h.SentAt,
		h.Successful,
		h.ErrorMessage,
	)
	return err
}

// ListByUser returns the user's history, newest first.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.ReplyHistory, error) {
	query := `
        SELECT id, user_id, email_id, rule_id, reply_content, sent_at, successful, COALESCE(error_message, '')
        FROM reply_history
        WHERE user_id = $1
        ORDER BY sent_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.ReplyHistory{}
	for rows.Next() {
		var h model.ReplyHistory
		err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.EmailID,
			&h.RuleID,
			&h.ReplyContent,
			&h.SentAt,
			&h.Successful,
			&h.ErrorMessage,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}

	return entries, rows.Err()
}

// CountRepliesToday returns how many successful replies were sent since
// midnight UTC, for the daily cap.
func (r *HistoryRepository) CountRepliesToday(ctx context.Context, userID string) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM reply_history
        WHERE user_id = $1
        AND successful = TRUE
        AND sent_at >= date_trunc('day', NOW() AT TIME ZONE 'utc')
    `
	var count int
	err := r.db.QueryRow(ctx, query, userID).Scan(&count)
	return count, err
}
