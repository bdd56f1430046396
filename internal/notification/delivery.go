package notification

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/frahmantamala/claim-workflow/internal/user"
)

// Message is a rendered digest ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Renderer turns the recipient and their counts into a message.
type Renderer interface {
	Render(u *user.User, counts DigestCounts) (Message, error)
}

// Deliverer hands a rendered digest to a transport.
type Deliverer interface {
	Deliver(ctx context.Context, u *user.User, msg Message) error
}

const digestBodyTemplate = `Hello {{.Name}},

there are claims waiting for you:
{{if .Counts.ToAssign}}  claims to assign: {{.Counts.ToAssign}}
{{end}}{{if .Counts.ToCheck}}  claims to check: {{.Counts.ToCheck}}
{{end}}{{if .Counts.ToSign}}  claims to sign: {{.Counts.ToSign}}
{{end}}{{if .Counts.OwnToSign}}  your claims to sign: {{.Counts.OwnToSign}}
{{end}}{{if .Counts.OwnToPrint}}  your claims to print: {{.Counts.OwnToPrint}}
{{end}}`

// TemplateRenderer renders the plain text digest body. The template is
// parsed once at construction.
type TemplateRenderer struct {
	subject string
	tmpl    *template.Template
}

func NewTemplateRenderer(subject string) (*TemplateRenderer, error) {
	tmpl, err := template.New("digest").Parse(digestBodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse digest template: %w", err)
	}
	return &TemplateRenderer{subject: subject, tmpl: tmpl}, nil
}

func (r *TemplateRenderer) Render(u *user.User, counts DigestCounts) (Message, error) {
	var buf bytes.Buffer
	data := struct {
		Name   string
		Counts DigestCounts
	}{
		Name:   u.FirstName,
		Counts: counts,
	}
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render digest for %s: %w", u.UID, err)
	}
	return Message{
		To:      u.Email,
		Subject: r.subject,
		Body:    buf.String(),
	}, nil
}

// LogDeliverer writes digests to the log instead of a mail relay. It is
// the development transport and keeps flushes observable without SMTP.
type LogDeliverer struct {
	logger *slog.Logger
}

func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(_ context.Context, u *user.User, msg Message) error {
	d.logger.Info("digest email",
		"to", msg.To,
		"user_uid", u.UID,
		"subject", msg.Subject,
		"body", msg.Body)
	return nil
}
