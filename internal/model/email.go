package model

import (
	"strings"
	"time"
)

// SenderType is the coarse classification of an email's sender, computed
// upstream by the provider integration. The engine only reads it.
type SenderType string

const (
	SenderClient  SenderType = "client"
	SenderFriend  SenderType = "friend"
	SenderFamily  SenderType = "family"
	SenderUnknown SenderType = "unknown"
)

// Email is an immutable snapshot of a received message. It is created at
// ingestion time and never mutated by the rule engine.
type Email struct {
	ID         string     `json:"id"`
	UserID     string     `json:"-"`
	ThreadID   string     `json:"threadId"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Subject    string     `json:"subject"`
	Snippet    string     `json:"snippet"`
	Body       string     `json:"body"`
	ReceivedAt time.Time  `json:"receivedAt"`
	Labels     []string   `json:"labels"`
	SenderType SenderType `json:"senderType,omitempty"`
	HasCTA     *bool      `json:"hasCTA,omitempty"`
}

// SenderDomain returns the domain part of the From address, or "" when the
// address has no @.
func (e *Email) SenderDomain() string {
	at := strings.LastIndex(e.From, "@")
	if at < 0 {
		return ""
	}
	return strings.TrimSuffix(e.From[at+1:], ">")
}
