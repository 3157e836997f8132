package notify

import (
	"context"
	"fmt"
	"net/smtp"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
	sendMail sendMailFunc
}

func NewMailer(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass string) *Mailer {
	return &Mailer{
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
		sendMail: smtp.SendMail,
	}
}

func (m *Mailer) Configured() bool {
	return m != nil && m.smtpHost != ""
}

func (m *Mailer) Send(_ context.Context, to, subject, body string) error {
	if !m.Configured() {
		return ErrNotConfigured
	}

	message := fmt.Sprintf("From: %s <%s>\r\n", m.fromName, m.from)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n" + body

	var auth smtp.Auth
	if m.smtpUser != "" && m.smtpPass != "" {
		auth = smtp.PlainAuth("", m.smtpUser, m.smtpPass, m.smtpHost)
	}

	addr := m.smtpHost + ":" + m.smtpPort
	return m.sendMail(addr, auth, m.from, []string{to}, []byte(message))
}

// SendPasswordReset mails the recovery link issued by the local credential store.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(`Hi,

We received a request to reset the password for your Keystone account.
Open the link below within the hour to choose a new one:

%s

If you did not ask for this, you can ignore this email.

- Keystone Gym`, link)

	return m.Send(ctx, to, "Reset your Keystone password", body)
}

type emailChannel struct {
	mailer *Mailer
	to     string
}

// NewEmail returns nil when the mailer or owner address is missing.
func NewEmail(mailer *Mailer, ownerEmail string) Channel {
	if !mailer.Configured() || ownerEmail == "" {
		return nil
	}
	return &emailChannel{mailer: mailer, to: ownerEmail}
}

func (e *emailChannel) Name() string { return "email" }

func (e *emailChannel) Send(ctx context.Context, message string) error {
	return e.mailer.Send(ctx, e.to, "Keystone: new notification", message)
}
