// Package mail delivers transactional e-mail such as password reset links.
package mail

import (
	"context"
	"fmt"
)

// Message is a plain-text e-mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const (
	resetSubject = "BestFlix – Password Reset"
	resetBody    = "To reset your password, click the link below. This link will expire in %d minutes.\n%s"
)

// ResetNotifier formats password reset messages and hands them to a Sender.
type ResetNotifier struct {
	sender     Sender
	ttlMinutes int
}

// NewResetNotifier returns a notifier announcing links valid for ttlMinutes.
func NewResetNotifier(sender Sender, ttlMinutes int) *ResetNotifier {
	if sender == nil {
		panic("mail: sender must not be nil")
	}
	return &ResetNotifier{sender: sender, ttlMinutes: ttlMinutes}
}

// SendPasswordReset mails link to the recipient.
func (n *ResetNotifier) SendPasswordReset(ctx context.Context, to, link string) error {
	msg := Message{
		To:      to,
		Subject: resetSubject,
		Body:    fmt.Sprintf(resetBody, n.ttlMinutes, link),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send password reset to %s: %w", to, err)
	}
	return nil
}
