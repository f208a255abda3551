package utils

import (
	"fmt"
	"log"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/campusmess/feedback-server/config"
)

// SendEmail sends an email using SendGrid
func SendEmail(toName, toEmail, subject, textContent, htmlContent string) error {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not set in environment variables")
	}

	from := mail.NewEmail(config.SendGridFromName, config.SendGridFromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, textContent, htmlContent)
	client := sendgrid.NewSendClient(apiKey)

	response, err := client.Send(message)
	if err != nil {
		log.Printf("Error sending email to %s: %v", toEmail, err)
		return err
	}

	if response.StatusCode >= 400 {
		log.Printf("SendGrid API Error: Status Code %d, Body: %s", response.StatusCode, response.Body)
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	log.Printf("Email sent successfully to %s. Status Code: %d", toEmail, response.StatusCode)
	return nil
}

// SendInviteEmail notifies a pre-provisioned user that an account is waiting
// for them. Failures are the caller's to log; the invite itself still stands.
func SendInviteEmail(toEmail, role, vendor string) error {
	subject := "You've been invited to the Mess Feedback portal"
	text := fmt.Sprintf("An account with the %s role has been created for %s. Sign in with your college Google account to activate it.", role, toEmail)
	html := fmt.Sprintf("<p>An account with the <strong>%s</strong> role has been created for you", role)
	if vendor != "" {
		html += fmt.Sprintf(" (vendor: %s)", vendor)
		text += fmt.Sprintf(" Assigned vendor: %s.", vendor)
	}
	html += ".</p><p>Sign in with your college Google account to activate it.</p>"
	return SendEmail(toEmail, toEmail, subject, text, html)
}
