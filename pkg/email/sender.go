package email

import (
	"context"
	"fmt"
	"regexp"
)

// Sender represents an interface for sending transactional emails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message represents a single outbound email.
type Message struct {
	To       string `json:"to"`             // Email address of the recipient
	Subject  string `json:"subject"`        // Subject of the email
	BodyHTML string `json:"body_html"`      // HTML body of the email
	BodyText string `json:"body_text"`      // Plain-text body of the email
	Tag      string `json:"tag,omitempty"`  // Optional tag for provider-side analytics
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks that the message carries a deliverable recipient, a subject
// and at least one body.
func (m Message) Validate() error {
	if m.To == "" || !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: recipient must be a valid email address", ErrInvalidMessage)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.BodyHTML == "" && m.BodyText == "" {
		return fmt.Errorf("%w: message body is required", ErrInvalidMessage)
	}
	return nil
}
