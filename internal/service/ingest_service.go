package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"replyflow/internal/event"
	"replyflow/internal/model"
	"replyflow/internal/repository"
	"replyflow/pkg/outbox"
)

// IngestService accepts an inbound email snapshot and announces it. The
// email row and the outbox event commit in one transaction; the outbox
// dispatcher publishes `email.received` afterwards, so a crash between
// commit and publish loses nothing.
type IngestService struct {
	db         *pgxpool.Pool
	emailRepo  *repository.EmailRepository
	outboxRepo *outbox.Repository
}

func NewIngestService(db *pgxpool.Pool, emailRepo *repository.EmailRepository, outboxRepo *outbox.Repository) *IngestService {
	return &IngestService{
		db:         db,
		emailRepo:  emailRepo,
		outboxRepo: outboxRepo,
	}
}

// Ingest stores the email and enqueues the email.received event.
func (s *IngestService) Ingest(ctx context.Context, userID string, email model.Email) (*model.Email, error) {
	email.ID = uuid.NewString()
	email.UserID = userID
	if email.ReceivedAt.IsZero() {
		email.ReceivedAt = time.Now().UTC()
	}
	if email.Labels == nil {
		email.Labels = []string{}
	}

	payload, err := json.Marshal(event.EmailReceivedPayload{
		EmailID:    email.ID,
		UserID:     userID,
		ReceivedAt: email.ReceivedAt,
	})
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.emailRepo.CreateEmail(ctx, tx, &email); err != nil {
		return nil, fmt.Errorf("failed to store email: %w", err)
	}

	evt := &outbox.Event{
		AggregateType: "email",
		AggregateID:   email.ID,
		RoutingKey:    event.EmailReceived,
		Payload:       payload,
	}
	if err := s.outboxRepo.InsertEvent(ctx, tx, evt); err != nil {
		return nil, fmt.Errorf("failed to enqueue event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return &email, nil
}
