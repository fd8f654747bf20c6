package model

import "time"

type NotificationKind string

const (
	NotifyReplySent   NotificationKind = "reply_sent"
	NotifyRuleMatched NotificationKind = "rule_matched"
	NotifyError       NotificationKind = "error"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"-"`
	Kind      NotificationKind `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	EmailID   string           `json:"emailId,omitempty"`
	RuleID    string           `json:"ruleId,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	Read      bool             `json:"read"`
}
