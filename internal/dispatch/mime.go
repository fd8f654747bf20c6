package dispatch

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"replyflow/internal/model"
)

// BuildReplyMessage renders the reply template into an RFC 5322 message
// addressed to the email's sender, threading it with In-Reply-To and
// References headers. The template text is sent as-is; placeholder
// expansion is the provider's concern.
func BuildReplyMessage(from string, email *model.Email, template string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: from}})

	to, err := mail.ParseAddressList(email.From)
	if err != nil {
		// provider snapshots occasionally carry display-name-only
		// senders; fall back to the raw string
		to = []*mail.Address{{Address: email.From}}
	}
	h.SetAddressList("To", to)
	h.SetSubject(replySubject(email.Subject))

	if email.ID != "" {
		msgID := fmt.Sprintf("%s@replyflow", email.ID)
		h.SetMsgIDList("In-Reply-To", []string{msgID})
		h.SetMsgIDList("References", []string{msgID})
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, template); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
