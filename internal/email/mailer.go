// Package email sends transactional mail (verification links, role-change
// notices) over SMTP. Delivery failures are logged by callers and never
// fail the originating request.
package email

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/evently/evently-backend/internal/config"
)

type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

func NewMailer(cfg config.Config) *Mailer {
	return &Mailer{
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:    cfg.SMTPFrom,
		baseURL: cfg.BaseURL,
	}
}

// SendVerification mails the account-verification link for a new user.
func (m *Mailer) SendVerification(to, username, userID, token string) error {
	link := fmt.Sprintf("%s/verify-email/%s/%s", m.baseURL, userID, token)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Please confirm your account by opening "+
			"<a href=%q>this link</a>.</p>", username, link)
	return m.send(to, "Verify Your Account", body)
}

// SendProRoleNotice informs a user their role changed to PRO.
func (m *Mailer) SendProRoleNotice(to, username string) error {
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your account has been upgraded to the PRO role.</p>",
		username)
	return m.send(to, "Professional Status Update", body)
}

// SendAccountLocked warns a user their account was locked after repeated
// failed logins.
func (m *Mailer) SendAccountLocked(to, username string) error {
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your account was locked after too many failed "+
			"login attempts. Contact an administrator to unlock it.</p>", username)
	return m.send(to, "Account Locked Notification", body)
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}
