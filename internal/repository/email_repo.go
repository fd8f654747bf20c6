package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"replyflow/internal/model"
)

type EmailRepository struct {
	db *pgxpool.Pool
}

func NewEmailRepository(db *pgxpool.Pool) *EmailRepository {
	return &EmailRepository{db: db}
}

// CreateEmail inserts an email snapshot inside the caller's transaction so
// the row and its outbox event commit together.
func (r *EmailRepository) CreateEmail(ctx context.Context, tx pgx.Tx, e *model.Email) error {
	query := `
        INSERT INTO emails (id, user_id, thread_id, from_addr, to_addr, subject, snippet, body,
                            received_at, labels, sender_type, has_cta)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12)
    `
	_, err := tx.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.ThreadID,
		e.From,
		e.To,
		e.Subject,
		e.Snippet,
		e.Body,
		e.ReceivedAt,
		e.Labels,
		string(e.SenderType),
		e.HasCTA,
	)
	return err
}

// FindByID returns the email snapshot by id.
func (r *EmailRepository) FindByID(ctx context.Context, id string) (*model.Email, error) {
	query := `
        SELECT id, user_id, thread_id, from_addr, to_addr, subject, snippet, body,
               received_at, labels, COALESCE(sender_type, ''), has_cta
        FROM emails
        WHERE id = $1
    `
	var e model.Email
	var senderType string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.UserID,
		&e.ThreadID,
		&e.From,
		&e.To,
		&e.Subject,
		&e.Snippet,
		&e.Body,
		&e.ReceivedAt,
		&e.Labels,
		&senderType,
		&e.HasCTA,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	e.SenderType = model.SenderType(senderType)
	return &e, nil
}

// ListByUser returns the user's emails, newest first.
func (r *EmailRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Email, error) {
	query := `
        SELECT id, user_id, thread_id, from_addr, to_addr, subject, snippet, body,
               received_at, labels, COALESCE(sender_type, ''), has_cta
        FROM emails
        WHERE user_id = $1
        ORDER BY received_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []model.Email{}
	for rows.Next() {
		var e model.Email
		var senderType string
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.ThreadID,
			&e.From,
			&e.To,
			&e.Subject,
			&e.Snippet,
			&e.Body,
			&e.ReceivedAt,
			&e.Labels,
			&senderType,
			&e.HasCTA,
		)
		if err != nil {
			return nil, err
		}
		e.SenderType = model.SenderType(senderType)
		emails = append(emails, e)
	}

	return emails, rows.Err()
}
