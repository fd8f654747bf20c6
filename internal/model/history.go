package model

import "time"

// ReplyHistory is an append-only record of a dispatched action's outcome.
// Entries are created once by the pipeline and never mutated.
type ReplyHistory struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	EmailID      string    `json:"emailId"`
	RuleID       string    `json:"ruleId"`
	ReplyContent string    `json:"replyContent"`
	SentAt       time.Time `json:"sentAt"`
	Successful   bool      `json:"successful"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}
