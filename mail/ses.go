// Package mail provides OTP delivery backends.
package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const charset = "UTF-8"

// SESAPI is the slice of the SES client the sender needs.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SES delivers OTP codes through Amazon SES.
type SES struct {
	client SESAPI
	sender string
}

// NewSES creates an SES-backed sender. sender must be a verified SES
// identity.
func NewSES(client SESAPI, sender string) *SES {
	return &SES{client: client, sender: sender}
}

// SendOTP implements the core's mail contract.
func (s *SES) SendOTP(ctx context.Context, to, subject, code string) error {
	htmlBody := fmt.Sprintf(
		`<html><body><p>Your Bazario verification code is:</p><h2>%s</h2><p>It expires in 5 minutes. If you did not request it, ignore this mail.</p></body></html>`,
		code,
	)
	textBody := fmt.Sprintf("Your Bazario verification code is %s. It expires in 5 minutes.", code)

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String(charset),
				Data:    aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Charset: aws.String(charset),
					Data:    aws.String(htmlBody),
				},
				Text: &types.Content{
					Charset: aws.String(charset),
					Data:    aws.String(textBody),
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
