package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"replyflow/internal/event"
	"replyflow/internal/model"
	"replyflow/internal/util"
	"replyflow/pkg/metrics"
)

const (
	// QueueName is the durable queue bound to email.received.
	QueueName = "email.received.q"

	handlerName = "pipeline"
	maxRetries  = 3
)

// EmailSource loads stored email snapshots.
type EmailSource interface {
	FindByID(ctx context.Context, id string) (*model.Email, error)
}

// ReplyPipeline evaluates an email and executes at most one action.
type ReplyPipeline interface {
	HandleEmail(ctx context.Context, email *model.Email) error
}

// Deduper suppresses duplicate deliveries. Release must undo AcquireOnce so
// a requeued message is not mistaken for a duplicate.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, emailID string) bool
	Release(ctx context.Context, handler string, emailID string)
}

// RetryCounter tracks attempts across redeliveries.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DLQPublisher parks poison messages.
type DLQPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

// EmailReceivedHandler consumes email.received events and drives the reply
// pipeline. Poison messages and exhausted retries are parked on the DLQ so
// the queue never wedges on a single bad message.
type EmailReceivedHandler struct {
	emails    EmailSource
	pipeline  ReplyPipeline
	deduper   Deduper
	retries   RetryCounter
	publisher DLQPublisher
	logger    *zap.Logger
}

func NewEmailReceivedHandler(
	emails EmailSource,
	pipeline ReplyPipeline,
	deduper Deduper,
	retries RetryCounter,
	publisher DLQPublisher,
	logger *zap.Logger,
) *EmailReceivedHandler {
	return &EmailReceivedHandler{
		emails:    emails,
		pipeline:  pipeline,
		deduper:   deduper,
		retries:   retries,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle processes one delivery. A nil return acks the message; a non-nil
// return nacks with requeue, so only errors classified as retryable and
// within budget are returned. Whenever an error is returned, the dedupe
// claim is released first: the broker will redeliver the message and that
// redelivery must be evaluated, not skipped as a duplicate.
func (h *EmailReceivedHandler) Handle(ctx context.Context, data json.RawMessage) error {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(event.EmailReceived, QueueName, time.Since(start))
	}()

	var payload event.EmailReceivedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Error("Malformed event payload, sending to DLQ", zap.Error(err))
		h.park(data, "json_decode_error: "+err.Error())
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, handlerName, payload.EmailID) {
		h.logger.Info("Duplicate delivery skipped",
			zap.String("email_id", payload.EmailID),
		)
		return nil
	}

	email, err := h.emails.FindByID(ctx, payload.EmailID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			h.logger.Warn("Event references missing email, sending to DLQ",
				zap.String("email_id", payload.EmailID),
			)
			h.park(data, "not_found: email "+payload.EmailID)
			return nil
		}
		return h.handleFailure(ctx, data, payload.EmailID, err)
	}

	if err := h.pipeline.HandleEmail(ctx, email); err != nil {
		return h.handleFailure(ctx, data, payload.EmailID, err)
	}

	retryKey := util.FormatRetryKey(handlerName, payload.EmailID)
	if err := h.retries.Reset(ctx, retryKey); err != nil {
		h.logger.Warn("Failed to reset retry counter",
			zap.String("email_id", payload.EmailID),
			zap.Error(err),
		)
	}

	return nil
}

// handleFailure classifies the error and decides between requeue and DLQ.
func (h *EmailReceivedHandler) handleFailure(ctx context.Context, data json.RawMessage, emailID string, cause error) error {
	retryable, errType := util.IsRetryableError(cause)
	if !retryable {
		h.logger.Error("Non-retryable pipeline error, sending to DLQ",
			zap.String("email_id", emailID),
			zap.String("error_type", errType),
			zap.Error(cause),
		)
		h.park(data, errType+": "+cause.Error())
		return nil
	}

	retryKey := util.FormatRetryKey(handlerName, emailID)
	count, err := h.retries.IncrementAndGet(ctx, retryKey)
	if err != nil {
		h.logger.Warn("Retry counter unavailable, requeueing",
			zap.String("email_id", emailID),
			zap.Error(err),
		)
		return h.requeue(ctx, emailID, cause)
	}

	if !util.ShouldRetry(count, maxRetries, retryable) {
		h.logger.Error("Retry budget exhausted, sending to DLQ",
			zap.String("email_id", emailID),
			zap.String("error_type", errType),
			zap.Int64("retries", count),
			zap.Error(cause),
		)
		h.park(data, errType+": "+cause.Error())
		if err := h.retries.Reset(ctx, retryKey); err != nil {
			h.logger.Warn("Failed to reset retry counter",
				zap.String("email_id", emailID),
				zap.Error(err),
			)
		}
		return nil
	}

	h.logger.Warn("Retryable pipeline error, requeueing",
		zap.String("email_id", emailID),
		zap.String("error_type", errType),
		zap.Int64("attempt", count),
		zap.Error(cause),
	)
	return h.requeue(ctx, emailID, cause)
}

// requeue hands the message back to the broker: the dedupe claim is
// released so the redelivery reaches the pipeline again.
func (h *EmailReceivedHandler) requeue(ctx context.Context, emailID string, cause error) error {
	h.deduper.Release(ctx, handlerName, emailID)
	return cause
}

func (h *EmailReceivedHandler) park(data []byte, reason string) {
	if err := h.publisher.PublishToDLQ(event.EmailReceived, data, reason); err != nil {
		h.logger.Error("Failed to publish to DLQ", zap.Error(err))
	}
}
