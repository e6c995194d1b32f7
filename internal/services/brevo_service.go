package services

import (
	"context"
	"fmt"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// EmailSender delivers one e-mail to the configured recipient.
type EmailSender interface {
	SendEmail(ctx context.Context, subject, htmlContent, textContent string) error
}

// BrevoService provides Brevo email service
type BrevoService struct {
	client    *brevo.APIClient
	FromEmail string
	FromName  string
	To        string
}

// NewBrevoService creates a new Brevo service instance
func NewBrevoService(apiKey, fromEmail, fromName, to string) *BrevoService {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	return &BrevoService{
		client:    brevo.NewAPIClient(cfg),
		FromEmail: fromEmail,
		FromName:  fromName,
		To:        to,
	}
}

// SendEmail sends email via Brevo API
func (s *BrevoService) SendEmail(ctx context.Context, subject, htmlContent, textContent string) error {
	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.FromName,
			Email: s.FromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: s.To},
		},
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: textContent,
	}

	_, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp != nil && resp.StatusCode >= 300 {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}
	return nil
}
