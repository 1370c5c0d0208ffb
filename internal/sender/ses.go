package sender

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const reminderSubject = "Task reminder"

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers SMS through a carrier email-to-SMS gateway: the message
// is emailed via SES to <digits>@<gateway domain>.
type SESSender struct {
	client        sesAPI
	fromEmail     string
	gatewayDomain string
}

func NewSESSender(cfg aws.Config, fromEmail, gatewayDomain string) (*SESSender, error) {
	return newSESSender(sesv2.NewFromConfig(cfg), fromEmail, gatewayDomain)
}

func newSESSender(client sesAPI, fromEmail, gatewayDomain string) (*SESSender, error) {
	if fromEmail == "" {
		return nil, fmt.Errorf("SES from address is not set")
	}
	gatewayDomain = strings.TrimPrefix(strings.TrimSpace(gatewayDomain), "@")
	if gatewayDomain == "" {
		return nil, fmt.Errorf("SMS gateway domain is not set")
	}
	return &SESSender{client: client, fromEmail: fromEmail, gatewayDomain: gatewayDomain}, nil
}

func (s *SESSender) gatewayAddress(phoneNumber string) string {
	return phoneNumber + "@" + s.gatewayDomain
}

func (s *SESSender) Send(ctx context.Context, phoneNumber, body string) (Receipt, error) {
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{s.gatewayAddress(phoneNumber)},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(reminderSubject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("ses send: %w", err)
	}
	return Receipt{ProviderMessageID: aws.ToString(out.MessageId)}, nil
}
