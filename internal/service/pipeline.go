package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"replyflow/internal/dispatch"
	"replyflow/internal/engine"
	"replyflow/internal/model"
	"replyflow/pkg/metrics"
)

// ActiveRuleSource supplies the ordered active rules for a user.
type ActiveRuleSource interface {
	ListActiveByUser(ctx context.Context, userID string) ([]model.Rule, error)
}

// HistorySink records dispatch outcomes.
type HistorySink interface {
	Record(ctx context.Context, h *model.ReplyHistory) error
	CountRepliesToday(ctx context.Context, userID string) (int, error)
}

// NotificationSink appends user-facing events.
type NotificationSink interface {
	Append(ctx context.Context, n *model.Notification) error
}

// SettingsSource supplies per-user preferences.
type SettingsSource interface {
	Get(ctx context.Context, userID string) (model.Settings, error)
}

// Pipeline runs an ingested email through evaluation and dispatch:
// evaluate -> execute -> record history -> append notifications.
// Evaluation is pure; every side effect happens after a rule is selected.
type Pipeline struct {
	rules         ActiveRuleSource
	history       HistorySink
	notifications NotificationSink
	settings      SettingsSource
	dispatcher    dispatch.Dispatcher
	logger        *zap.Logger
}

func NewPipeline(
	rules ActiveRuleSource,
	history HistorySink,
	notifications NotificationSink,
	settings SettingsSource,
	dispatcher dispatch.Dispatcher,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		rules:         rules,
		history:       history,
		notifications: notifications,
		settings:      settings,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// HandleEmail evaluates the email against the user's active rules and
// executes at most one action. A dispatch failure is handled here (failed
// history entry plus error notification) and is not returned as an error;
// returned errors mean the pipeline itself could not run and the message
// should be retried.
func (p *Pipeline) HandleEmail(ctx context.Context, email *model.Email) error {
	rules, err := p.rules.ListActiveByUser(ctx, email.UserID)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	rule := engine.Evaluate(email, rules)
	if rule == nil {
		metrics.RecordRuleEvaluation("no_match")
		p.logger.Debug("No rule matched",
			zap.String("email_id", email.ID),
			zap.Int("rules_considered", len(rules)),
		)
		return nil
	}
	metrics.RecordRuleEvaluation("matched")

	p.logger.Info("Rule matched",
		zap.String("email_id", email.ID),
		zap.String("rule_id", rule.ID),
		zap.String("rule_name", rule.Name),
		zap.String("action", string(rule.Action.Type())),
	)

	// per-user settings act as global notification defaults on top of the
	// rule's own flags, and carry the daily reply cap
	var prefs model.Settings
	reply, isReply := rule.Action.(model.ReplyAction)
	if isReply {
		var err error
		prefs, err = p.settings.Get(ctx, email.UserID)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}

		capped, err := p.replyCapReached(ctx, email.UserID, prefs)
		if err != nil {
			return err
		}
		if capped {
			metrics.RecordReplySent("capped")
			p.notify(ctx, &model.Notification{
				UserID:  email.UserID,
				Kind:    model.NotifyRuleMatched,
				Title:   "Rule matched, reply skipped",
				Message: fmt.Sprintf("Rule %q matched an email from %s but the daily reply limit was reached", rule.Name, email.From),
				EmailID: email.ID,
				RuleID:  rule.ID,
			})
			return nil
		}

		if reply.NotifyBefore || prefs.NotifyBeforeReply {
			p.notify(ctx, &model.Notification{
				UserID:  email.UserID,
				Kind:    model.NotifyRuleMatched,
				Title:   "Rule matched",
				Message: fmt.Sprintf("Rule %q matched an email from %s", rule.Name, email.From),
				EmailID: email.ID,
				RuleID:  rule.ID,
			})
		}
	}

	outcome := p.dispatcher.Execute(ctx, rule.Action, email)

	entry := &model.ReplyHistory{
		ID:           uuid.NewString(),
		UserID:       email.UserID,
		EmailID:      email.ID,
		RuleID:       rule.ID,
		ReplyContent: outcome.SentContent,
		SentAt:       time.Now().UTC(),
		Successful:   outcome.Success,
		ErrorMessage: outcome.Error,
	}
	if err := p.history.Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}

	if !outcome.Success {
		metrics.RecordReplySent("failed")
		p.notify(ctx, &model.Notification{
			UserID:  email.UserID,
			Kind:    model.NotifyError,
			Title:   "Failed to execute rule action",
			Message: fmt.Sprintf("Rule %q failed for an email from %s: %s", rule.Name, email.From, outcome.Error),
			EmailID: email.ID,
			RuleID:  rule.ID,
		})
		return nil
	}

	metrics.RecordReplySent("success")

	if isReply && (reply.NotifyAfter || prefs.NotifyAfterReply) {
		p.notify(ctx, &model.Notification{
			UserID:  email.UserID,
			Kind:    model.NotifyReplySent,
			Title:   "Auto-reply sent",
			Message: fmt.Sprintf("Auto-reply was sent to %s by rule %q", email.From, rule.Name),
			EmailID: email.ID,
			RuleID:  rule.ID,
		})
	}

	return nil
}

func (p *Pipeline) replyCapReached(ctx context.Context, userID string, prefs model.Settings) (bool, error) {
	if prefs.MaxDailyReplies <= 0 {
		return false, nil
	}

	count, err := p.history.CountRepliesToday(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to count replies: %w", err)
	}
	return count >= prefs.MaxDailyReplies, nil
}

// notify appends a notification; failures are logged, not propagated,
// because a lost bell icon must not fail the pipeline.
func (p *Pipeline) notify(ctx context.Context, n *model.Notification) {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()

	if err := p.notifications.Append(ctx, n); err != nil {
		p.logger.Error("Failed to append notification",
			zap.String("kind", string(n.Kind)),
			zap.String("email_id", n.EmailID),
			zap.Error(err),
		)
	}
}
