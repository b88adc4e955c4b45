package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const charset = "UTF-8"

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESSender struct {
	api    sesAPI
	source string
}

// NewSES uses the default AWS credential chain.
func NewSES(ctx context.Context, region, fromName, fromAddress string) (*SESSender, error) {
	const op = "clients.mailer.NewSES"

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SESSender{
		api:    ses.NewFromConfig(cfg),
		source: source(fromName, fromAddress),
	}, nil
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	const op = "clients.mailer.ses.Send"

	_, err := s.api.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(s.source),
		Destination: &types.Destination{ToAddresses: []string{msg.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String(charset)},
				Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String(charset)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func source(name, address string) string {
	if name == "" {
		return address
	}

	return fmt.Sprintf("%s <%s>", name, address)
}
