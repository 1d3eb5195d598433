package mail

import (
	"fmt"
	"html"
	"log"
	"net/smtp"

	"github.com/gomesmer/mesmer/internal/pkg/env"
)

// SendMail sends an HTML email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// SendSignupNotification tells the operator about a new league signup.
func SendSignupNotification(name, email string, mrr int64, anonymous, accelerator bool) error {
	notify := env.GetEnv("SIGNUP_NOTIFY_EMAIL", "")
	if notify == "" {
		return nil
	}

	yesNo := func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	}

	body := fmt.Sprintf(`
		<h2>New league signup</h2>
		<p><strong>Company:</strong> %s</p>
		<p><strong>Email:</strong> %s</p>
		<p><strong>MRR (USD):</strong> $%d</p>
		<p><strong>Anonymous:</strong> %s</p>
		<p><strong>Interested in accelerator:</strong> %s</p>
	`, html.EscapeString(name), html.EscapeString(email), mrr, yesNo(anonymous), yesNo(accelerator))

	return SendMail(notify, fmt.Sprintf("Company signed up: %s", html.EscapeString(name)), body)
}

// SendSignupConfirmation welcomes the new participant.
func SendSignupConfirmation(name, email string) error {
	body := fmt.Sprintf(`
		<h2>You're in</h2>
		<p>Hi %s,</p>
		<p>You're ready to join the league. Your league will start on the <strong>1st of the next month.</strong></p>
		<p>We'll charge the admission fee when the league starts.</p>
		<p>— The Mesmer team</p>
	`, html.EscapeString(name))

	return SendMail(email, "You're in — Mesmer league", body)
}
