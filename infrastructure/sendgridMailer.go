package infrastructure

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridMailer(apiKey string, fromEmail string, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (m *SendGridMailer) SendReminder(ctx context.Context, toEmail string, patientName string, reportURL string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail("", toEmail)
	subject := fmt.Sprintf("Health report reminder for %s", patientName)
	plainContent := fmt.Sprintf("A new health report for %s is ready. Open it here: %s", patientName, reportURL)
	htmlContent := fmt.Sprintf(
		"<p>A new health report for <strong>%s</strong> is ready.</p><p><a href=%q>Open the report</a></p>",
		patientName, reportURL)

	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	res, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending reminder mail: %w", err)
	}
	if res.StatusCode >= 400 {
		return fmt.Errorf("sending reminder mail: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
