// Package dispatch executes a selected rule action against the mail
// provider. Selection (the engine) and execution are deliberately
// decoupled: a dispatch failure never corrupts the matching result, it is
// reported through the Outcome.
package dispatch

import (
	"context"

	"replyflow/internal/model"
)

// Outcome is the result of executing one action. A failed dispatch is a
// normal Outcome, not an error: the pipeline records it and moves on.
type Outcome struct {
	Success     bool
	SentContent string
	Error       string
}

// Dispatcher executes a rule action for an email.
type Dispatcher interface {
	Execute(ctx context.Context, action model.RuleAction, email *model.Email) Outcome
}
