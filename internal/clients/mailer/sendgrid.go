package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrRejected = errors.New("email provider rejected the message")

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendgridSender struct {
	client sendgridClient
	from   *mail.Email
}

func NewSendgrid(apiKey, fromName, fromAddress string) *SendgridSender {
	return &SendgridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	const op = "clients.mailer.sendgrid.Send"

	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail("", msg.To), msg.Text, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ErrRejected)
	}

	return nil
}
