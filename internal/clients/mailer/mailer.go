package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/zanzhit/voicetribe/internal/domain/models"
)

const (
	sharedSubject = "A voice recording has been shared with you on VoiceTribe"
	inviteSubject = "You've been invited to listen to a voice recording on VoiceTribe"
)

var (
	sharedTmpl = template.Must(template.New("shared").Parse(`<h2>A voice recording has been shared with you!</h2>
<p>{{if .SharedBy}}{{.SharedBy}} has{{else}}Someone has{{end}} shared a voice recording{{if .Title}} "{{.Title}}"{{end}} with you on VoiceTribe.</p>
<p>Click the link below to listen:</p>
<a href="{{.Link}}" style="display: inline-block; background-color: #6366f1; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Listen to Recording</a>
`))

	inviteTmpl = template.Must(template.New("invite").Parse(`<h2>You've been invited to listen to a voice recording!</h2>
<p>{{if .SharedBy}}{{.SharedBy}} has{{else}}Someone has{{end}} shared a voice recording{{if .Title}} "{{.Title}}"{{end}} with you on VoiceTribe.</p>
<p>Click the link below to sign up and listen:</p>
<a href="{{.Link}}" style="display: inline-block; background-color: #6366f1; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Sign Up to Listen</a>
`))
)

// Message is a rendered transactional email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Mailer struct {
	sender Sender
	appURL string
}

func New(sender Sender, appURL string) *Mailer {
	return &Mailer{
		sender: sender,
		appURL: strings.TrimRight(appURL, "/"),
	}
}

// SendShared notifies an existing user that a recording is waiting on their dashboard.
func (m *Mailer) SendShared(ctx context.Context, inv models.Invite) error {
	const op = "clients.mailer.SendShared"

	msg, err := m.render(sharedTmpl, sharedSubject, inv, m.appURL+"/dashboard")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SendInvite asks an unknown recipient to sign up; the link carries the share context.
func (m *Mailer) SendInvite(ctx context.Context, inv models.Invite) error {
	const op = "clients.mailer.SendInvite"

	msg, err := m.render(inviteTmpl, inviteSubject, inv, m.SignupLink(inv))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *Mailer) SignupLink(inv models.Invite) string {
	q := url.Values{}
	q.Set("recording", inv.RecordingID)
	q.Set("email", inv.To)
	q.Set("action", "share")
	q.Set("sharedById", inv.SharedByID)

	return m.appURL + "/login?" + q.Encode()
}

func (m *Mailer) render(tmpl *template.Template, subject string, inv models.Invite, link string) (Message, error) {
	var buf bytes.Buffer

	err := tmpl.Execute(&buf, struct {
		SharedBy string
		Title    string
		Link     string
	}{
		SharedBy: inv.SharedByEmail,
		Title:    inv.RecordingTitle,
		Link:     link,
	})
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      inv.To,
		Subject: subject,
		HTML:    buf.String(),
		Text:    subject + "\n\n" + link,
	}, nil
}
