// Package event defines the MQ contracts shared by the API and worker
// binaries.
package event

import "time"

// Routing keys on the events exchange.
const (
	EmailReceived = "email.received"
)

// EmailReceivedPayload announces a newly ingested email. The worker loads
// the full snapshot from the database by ID so a stale payload can never
// override the stored row.
type EmailReceivedPayload struct {
	EmailID    string    `json:"email_id"`
	UserID     string    `json:"user_id"`
	ReceivedAt time.Time `json:"received_at"`
}
