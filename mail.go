package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Email is an outbound plain text message
type Email struct {
	To      string
	Subject string
	Text    string
}

// Mailer delivers emails
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// MailerFunc adapts a function to the Mailer interface
type MailerFunc func(ctx context.Context, email Email) error

func (f MailerFunc) Send(ctx context.Context, email Email) error {
	return f(ctx, email)
}

// LogMailer writes emails to a zerolog logger instead of sending them.
// Use it for local development only, the body contains the reset secret.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(l zerolog.Logger) *LogMailer {
	return &LogMailer{log: l.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.Info().
		Str("to", email.To).
		Str("subject", email.Subject).
		Msg(email.Text)
	return nil
}

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends plain text email through an SMTP relay. Addresses are
// validated and headers encoded by go-mail.
type SMTPMailer struct {
	cfg      SMTPConfig
	sendMail func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg}
	m.sendMail = m.dialAndSend
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	msg, err := m.buildMessage(email)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- m.sendMail(ctx, msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryExternal, "smtp delivery failed")
		}
		return nil
	}
}

func (m *SMTPMailer) buildMessage(email Email) (*mail.Msg, error) {
	if email.To == "" {
		return nil, goerrors.New("email recipient is required", goerrors.CategoryValidation)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sender address")
	}

	if err := msg.To(email.To); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid recipient address")
	}

	msg.Subject(email.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, email.Text)

	return msg, nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}

	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}

	return client.DialAndSendWithContext(ctx, msg)
}
