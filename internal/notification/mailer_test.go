package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/bookclurb/clurb-api/internal/config"
)

func testEmail() InviteEmail {
	return InviteEmail{
		To:          "grace@example.com",
		ClubName:    "Night Readers",
		InviterName: "Ada <script>",
		SignupLink:  "https://clurb.test/signup?inviteId=i1&clubId=c1&email=grace%40example.com",
	}
}

func TestRenderInvite(t *testing.T) {
	html, text, err := RenderInvite(testEmail())
	require.NoError(t, err)

	assert.Contains(t, html, "Ada &lt;script&gt;")
	assert.Contains(t, html, "Join Night Readers")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, text, "Ada <script> has invited you to join Night Readers")
	assert.Contains(t, text, "https://clurb.test/signup?inviteId=i1&clubId=c1&email=grace%40example.com")
}

func TestSendInviteComposesMessage(t *testing.T) {
	var sent *gomail.Message
	m := &SMTPInviteMailer{
		from:   "invites@clurb.test",
		logger: zerolog.Nop(),
		send: func(msg *gomail.Message) error {
			sent = msg
			return nil
		},
	}

	require.NoError(t, m.SendInvite(context.Background(), testEmail()))
	require.NotNil(t, sent)
	assert.Equal(t, []string{"grace@example.com"}, sent.GetHeader("To"))
	assert.Equal(t, []string{"You're invited to join Night Readers on Book Clurb!"}, sent.GetHeader("Subject"))
	require.Len(t, sent.GetHeader("From"), 1)
	assert.Contains(t, sent.GetHeader("From")[0], "Book Clurb")
	assert.Contains(t, sent.GetHeader("From")[0], "<invites@clurb.test>")
}

func TestSendInvitePropagatesFailure(t *testing.T) {
	boom := errors.New("535 authentication failed")
	m := &SMTPInviteMailer{from: "x@clurb.test", logger: zerolog.Nop(), send: func(*gomail.Message) error { return boom }}
	assert.ErrorIs(t, m.SendInvite(context.Background(), testEmail()), boom)
}

func TestMailerWithoutCredentialsIsDisabled(t *testing.T) {
	m := NewSMTPInviteMailer(config.EmailConfig{SMTPHost: "smtp.gmail.com"}, zerolog.Nop())
	assert.ErrorIs(t, m.SendInvite(context.Background(), testEmail()), ErrMailerDisabled)
}

func TestMailerWithCredentialsDialsSMTP(t *testing.T) {
	m := NewSMTPInviteMailer(config.EmailConfig{
		SMTPHost: "127.0.0.1", SMTPPort: 1, Username: "clubs@clurb.test", Password: "secret",
	}, zerolog.Nop())
	require.NotNil(t, m.send)
	assert.Equal(t, "clubs@clurb.test", m.from)

	// Nothing listens on port 1, so the dial itself fails.
	err := m.SendInvite(context.Background(), testEmail())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMailerDisabled)
}
