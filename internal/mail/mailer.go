// Package mail sends the account emails: a welcome message on signup and
// the password reset link.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const sendTimeout = 10 * time.Second

// Recipient is the addressee of an account email.
type Recipient struct {
	Name  string
	Email string
}

func (r Recipient) firstName() string {
	if f := strings.Fields(r.Name); len(f) > 0 {
		return f[0]
	}
	return r.Name
}

// Sender delivers assembled messages; *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	sender Sender
	logger *log.Logger
	from   string
}

func NewMailer(host string, port int, username, password, from string, logger *log.Logger) *Mailer {
	return NewMailerWithSender(gomail.NewDialer(host, port, username, password), from, logger)
}

func NewMailerWithSender(sender Sender, from string, logger *log.Logger) *Mailer {
	return &Mailer{sender: sender, logger: logger, from: from}
}

func (m *Mailer) SendWelcome(ctx context.Context, to Recipient, url string) error {
	text := fmt.Sprintf("Hi %s, welcome to Natours! Upload your user photo at %s", to.firstName(), url)
	return m.send(ctx, to, "Welcome to the Natours Family!", "welcome", text, url)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to Recipient, url string) error {
	text := fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\n"+
		"If you didn't forget your password, please ignore this email!", url)
	return m.send(ctx, to, "Your password reset token (valid for only 10 minutes)", "passwordReset", text, url)
}

func (m *Mailer) send(ctx context.Context, to Recipient, subject, tmpl, text, url string) error {
	var html bytes.Buffer
	data := struct{ FirstName, URL string }{to.firstName(), url}
	if err := templates.ExecuteTemplate(&html, tmpl, data); err != nil {
		return fmt.Errorf("rendering %s email: %w", tmpl, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetAddressHeader("To", to.Email, to.Name)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", html.String())

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		m.logger.Printf("Email send to %s cancelled: %v", to.Email, ctx.Err())
		return ctx.Err()
	default:
		if err := m.sender.DialAndSend(msg); err != nil {
			m.logger.Printf("Failed to send %s email to %s: %v", tmpl, to.Email, err)
			return err
		}
		m.logger.Printf("%s email sent to %s", tmpl, to.Email)
		return nil
	}
}
