package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/bookclurb/clurb-api/internal/config"
)

// ErrMailerDisabled is returned when no SMTP credentials are configured.
var ErrMailerDisabled = errors.New("email service not configured")

// InviteEmail is everything needed to render a club invitation.
type InviteEmail struct {
	To          string
	ClubName    string
	InviterName string
	SignupLink  string
}

// InviteMailer delivers club invitation emails.
type InviteMailer interface {
	SendInvite(ctx context.Context, email InviteEmail) error
}

// SMTPInviteMailer sends invitations through an SMTP relay with gomail.
type SMTPInviteMailer struct {
	from   string
	send   func(*gomail.Message) error
	logger zerolog.Logger
}

// NewSMTPInviteMailer builds a mailer from config. Without credentials the
// mailer is still returned but every send fails with ErrMailerDisabled.
func NewSMTPInviteMailer(cfg config.EmailConfig, logger zerolog.Logger) *SMTPInviteMailer {
	logger = logger.With().Str("component", "invite_mailer").Logger()
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = strings.TrimSpace(cfg.Username)
	}

	m := &SMTPInviteMailer{from: from, logger: logger}
	if strings.TrimSpace(cfg.SMTPHost) == "" || strings.TrimSpace(cfg.Username) == "" || cfg.Password == "" {
		logger.Warn().Msg("email credentials not set; invite emails will fail")
		m.send = func(*gomail.Message) error { return ErrMailerDisabled }
		return m
	}

	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	dialer := gomail.NewDialer(cfg.SMTPHost, port, cfg.Username, cfg.Password)
	m.send = func(msg *gomail.Message) error { return dialer.DialAndSend(msg) }
	return m
}

func (m *SMTPInviteMailer) SendInvite(ctx context.Context, email InviteEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := m.compose(email)
	if err != nil {
		return err
	}
	if err := m.send(msg); err != nil {
		m.logger.Error().Err(err).Str("club", email.ClubName).Msg("sending invite email failed")
		return err
	}
	return nil
}

func (m *SMTPInviteMailer) compose(email InviteEmail) (*gomail.Message, error) {
	html, text, err := RenderInvite(email)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.from, "Book Clurb"))
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", fmt.Sprintf("You're invited to join %s on Book Clurb!", email.ClubName))
	msg.SetBody("text/html", html)
	msg.AddAlternative("text/plain", text)
	return msg, nil
}

var inviteHTML = htmltemplate.Must(htmltemplate.New("invite_html").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <style>
      body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
      .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; border-radius: 8px 8px 0 0; }
      .content { background: #f8f9fa; padding: 30px; border-radius: 0 0 8px 8px; }
      .button { display: inline-block; background: #667eea; color: white; padding: 12px 30px; text-decoration: none; border-radius: 6px; margin: 20px 0; font-weight: bold; }
      .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #dee2e6; color: #6b7280; font-size: 14px; }
    </style>
  </head>
  <body>
    <div class="header"><h1>Book Clurb</h1></div>
    <div class="content">
      <h2>You're Invited!</h2>
      <p>Hi there,</p>
      <p><strong>{{.InviterName}}</strong> has invited you to join <strong>{{.ClubName}}</strong> on Book Clurb!</p>
      <p>Book Clurb is a platform for managing book clubs, tracking reading progress, and sharing reflections with your fellow readers.</p>
      <p style="text-align: center;"><a href="{{.SignupLink}}" class="button">Join {{.ClubName}}</a></p>
      <p>Or copy and paste this link into your browser:</p>
      <p style="word-break: break-all; color: #667eea;">{{.SignupLink}}</p>
      <div class="footer">
        <p>If you didn't expect this invite, you can safely ignore this email.</p>
        <p>Happy reading!</p>
      </div>
    </div>
  </body>
</html>`))

var inviteText = texttemplate.Must(texttemplate.New("invite_text").Parse(`You're invited to join {{.ClubName}} on Book Clurb!

{{.InviterName}} has invited you to join {{.ClubName}} on Book Clurb, a platform for managing book clubs and sharing reading reflections.

Join the club by clicking this link: {{.SignupLink}}

If you didn't expect this invite, you can safely ignore this email.

Happy reading!`))

// RenderInvite returns the HTML and plain-text bodies of an invitation.
func RenderInvite(email InviteEmail) (string, string, error) {
	if strings.TrimSpace(email.InviterName) == "" {
		email.InviterName = "A fellow reader"
	}

	var html, text bytes.Buffer
	if err := inviteHTML.Execute(&html, email); err != nil {
		return "", "", fmt.Errorf("render invite html: %w", err)
	}
	if err := inviteText.Execute(&text, email); err != nil {
		return "", "", fmt.Errorf("render invite text: %w", err)
	}
	return html.String(), text.String(), nil
}
