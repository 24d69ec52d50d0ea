package mailer

import (
	"bytes"
	"errors"
	"testing"

	"twinai-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSendBuildsMessage(t *testing.T) {
	d := &recordingDialer{}
	svc := &emailService{dialer: d, senderEmail: "bot@example.com", logger: logger.NewNopLogger()}

	require.NoError(t, svc.Send("a@b.com", "Status", "Hi <team>,\n\nAll good."))
	require.Len(t, d.sent, 1)

	msg := d.sent[0]
	assert.Equal(t, []string{"bot@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"a@b.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Status"}, msg.GetHeader("Subject"))

	var raw bytes.Buffer
	_, err := msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "Hi <team>,")
	assert.Contains(t, raw.String(), "text/html")
}

func TestToHTMLEscapesAndSplitsParagraphs(t *testing.T) {
	assert.Equal(t,
		`<div style="font-family: Arial, sans-serif; color: #333;"><p>Hi &lt;team&gt;,</p><p>line one<br>line two</p></div>`,
		toHTML("Hi <team>,\n\nline one\nline two\n"),
	)
}

func TestSendPropagatesFailure(t *testing.T) {
	svc := &emailService{dialer: &recordingDialer{err: errors.New("auth failed")}, logger: logger.NewNopLogger()}
	assert.EqualError(t, svc.Send("a@b.com", "s", "b"), "auth failed")
}

func TestUnconfiguredService(t *testing.T) {
	svc := NewEmailService("", 0, "", "", "", nil)
	assert.ErrorIs(t, svc.Send("a@b.com", "s", "b"), ErrNotConfigured)
}
