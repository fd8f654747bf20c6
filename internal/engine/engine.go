// Package engine selects the auto-reply rule to apply to an incoming email.
//
// Evaluation is pure: no I/O, no shared state, safe to call concurrently.
// Selection and execution are deliberately decoupled; the caller hands the
// selected rule's action to the dispatcher.
package engine

import (
	"replyflow/internal/model"
)

// Evaluate returns the first active rule, in stored order, all of whose
// conditions match the email. Conditions are ANDed and short-circuit on the
// first failure. Overlapping rules resolve by first match, not best match.
// A nil result is the normal no-match outcome, not an error.
func Evaluate(email *model.Email, rules []model.Rule) *model.Rule {
	for i := range rules {
		r := &rules[i]
		if !r.Active {
			continue
		}
		if matchesAll(email, r.Conditions) {
			return r
		}
	}
	return nil
}

func matchesAll(email *model.Email, conds []model.RuleCondition) bool {
	if len(conds) == 0 {
		// a stored rule always has conditions; an empty set is treated
		// as non-matching rather than match-everything
		return false
	}
	for i := range conds {
		if !conds[i].Matches(email) {
			return false
		}
	}
	return true
}
