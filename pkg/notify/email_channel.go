package notify

import (
	"context"
	"fmt"

	"github.com/pulsefit/notify/pkg/email"
)

// EmailChannel delivers notifications through the outbound mail transport.
// The email body prefers the notification's rendered EmailContent and falls
// back to the plain content; the plain content always travels as the text
// part.
type EmailChannel struct {
	sender email.Sender
}

// NewEmailChannel creates the email channel adapter. A nil sender is
// allowed: sends then fail with ErrEmailUnavailable, letting hosts run
// without a mail provider while keeping the channel registered.
func NewEmailChannel(sender email.Sender) *EmailChannel {
	return &EmailChannel{sender: sender}
}

func (c *EmailChannel) Channel() Channel { return ChannelEmail }

func (c *EmailChannel) Send(ctx context.Context, n Notification, user User) error {
	if c.sender == nil {
		return ErrEmailUnavailable
	}
	if user.Email == "" {
		return fmt.Errorf("%w: user %s has no email address", ErrInvalidUser, user.ID)
	}

	html := n.EmailContent
	if html == "" {
		html = n.Content
	}

	msg := email.Message{
		To:       user.Email,
		Subject:  n.Title,
		BodyHTML: html,
		BodyText: n.Content,
		Tag:      string(n.Category),
	}
	if err := c.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}
