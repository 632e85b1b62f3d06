package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/bestflix/backend/internal/logging"
)

type captureSender struct {
	msgs []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestResetNotifierFormatsMessage(t *testing.T) {
	sender := &captureSender{}
	notifier := NewResetNotifier(sender, 30)

	link := "http://127.0.0.1:5500/html/reset-password.html?token=abc"
	require.NoError(t, notifier.SendPasswordReset(context.Background(), "elcin@example.com", link))

	require.Len(t, sender.msgs, 1)
	msg := sender.msgs[0]
	assert.Equal(t, "elcin@example.com", msg.To)
	assert.Equal(t, "BestFlix – Password Reset", msg.Subject)
	assert.Equal(t, "To reset your password, click the link below. This link will expire in 30 minutes.\n"+link, msg.Body)
}

func TestResetNotifierWrapsFailures(t *testing.T) {
	cause := errors.New("connection refused")
	notifier := NewResetNotifier(&captureSender{err: cause}, 30)

	err := notifier.SendPasswordReset(context.Background(), "elcin@example.com", "link")
	assert.ErrorIs(t, err, cause)
}

func TestSMTPSenderComposesMessage(t *testing.T) {
	sender, err := NewSMTPSender(SMTPConfig{Host: "mail.example.com", Port: 2525, Username: "bot", Password: "pw", From: "no-reply@bestflix.local"})
	require.NoError(t, err)
	sender.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	var sent []*gomail.Msg
	sender.send = func(_ context.Context, msg *gomail.Msg) error {
		sent = append(sent, msg)
		return nil
	}

	require.NoError(t, sender.Send(context.Background(), Message{To: "elcin@example.com", Subject: "BestFlix – Password Reset", Body: "line one\nline two"}))
	require.Len(t, sent, 1)

	to, err := sent[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"elcin@example.com"}, to)

	var buf bytes.Buffer
	_, err = sent[0].WriteTo(&buf)
	require.NoError(t, err)
	rendered := buf.String()
	assert.Contains(t, rendered, "From: <no-reply@bestflix.local>")
	assert.Contains(t, strings.ToLower(rendered), "subject: =?utf-8?q?")
	assert.Contains(t, rendered, "01 May 2024 09:00:00")
	assert.Contains(t, rendered, "line one")
	assert.Contains(t, rendered, "line two")
	assert.Equal(t, "mail.example.com:2525", sender.host)
}

func TestSMTPSenderErrors(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{From: "a@b.c"})
	assert.Error(t, err)
	_, err = NewSMTPSender(SMTPConfig{Host: "mail.example.com", From: "not an address"})
	assert.Error(t, err)

	sender, err := NewSMTPSender(SMTPConfig{Host: "mail.example.com", From: "a@b.c"})
	require.NoError(t, err)
	var calls int
	sender.send = func(context.Context, *gomail.Msg) error {
		calls++
		return errors.New("421 service not available")
	}

	assert.Error(t, sender.Send(context.Background(), Message{To: "x@example.com"}))
	assert.Equal(t, 1, calls)

	assert.Error(t, sender.Send(context.Background(), Message{To: "x@example.com\r\nBcc: y@example.com"}))
	assert.Equal(t, 1, calls, "an invalid recipient is rejected before sending")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sender.Send(ctx, Message{To: "x@example.com"}), context.Canceled)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, LogSender{}.Send(ctx, Message{To: "elcin@example.com", Subject: "hi", Body: "link"}))
	assert.Contains(t, buf.String(), `"to":"elcin@example.com"`)
}
