package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"replyflow/internal/model"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Append inserts a notification. Created unread.
func (r *NotificationRepository) Append(ctx context.Context, n *model.Notification) error {
	query := `
        INSERT INTO notifications (id, user_id, kind, title, message, email_id, rule_id, created_at, read)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, FALSE)
    `
	_, err := r.db.Exec(ctx, query,
		n.ID,
		n.UserID,
		string(n.Kind),
		n.Title,
		n.Message,
		n.EmailID,
		n.RuleID,
		n.CreatedAt,
	)
	return err
}

// ListByUser returns the user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	query := `
        SELECT id, user_id, kind, title, message, COALESCE(email_id, ''), COALESCE(rule_id, ''), created_at, read
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var kind string
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&kind,
			&n.Title,
			&n.Message,
			&n.EmailID,
			&n.RuleID,
			&n.CreatedAt,
			&n.Read,
		)
		if err != nil {
			return nil, err
		}
		n.Kind = model.NotificationKind(kind)
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// UnreadCount returns how many notifications are unread.
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM notifications
        WHERE user_id = $1 AND read = FALSE
    `
	var count int
	err := r.db.QueryRow(ctx, query, userID).Scan(&count)
	return count, err
}

// MarkRead flips the read flag. Returns ErrNotFound when absent.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	query := `
        UPDATE notifications
        SET read = TRUE
        WHERE id = $1 AND user_id = $2
    `
	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every notification read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	query := `
        UPDATE notifications
        SET read = TRUE
        WHERE user_id = $1 AND read = FALSE
    `
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// Delete removes one notification. Returns ErrNotFound when absent.
func (r *NotificationRepository) Delete(ctx context.Context, userID, id string) error {
	query := `
        DELETE FROM notifications
        WHERE id = $1 AND user_id = $2
    `
	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ClearAll removes every notification for the user.
func (r *NotificationRepository) ClearAll(ctx context.Context, userID string) error {
	query := `
        DELETE FROM notifications
        WHERE user_id = $1
    `
	_, err := r.db.Exec(ctx, query, userID)
	return err
}
