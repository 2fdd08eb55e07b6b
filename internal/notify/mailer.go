package notify

import (
	"context"
	"fmt"
	"log/slog"

	"sortec/entity"
	"sortec/internal/config"
	"sortec/lib/sl"

	"github.com/wneessen/go-mail"
)

// Mailer delivers every notification kind over SMTP. Each Send dials its own
// connection, so the dispatcher workers deliver mail in parallel.
type Mailer struct {
	client *mail.Client
	from   string
	log    *slog.Logger
}

func NewMailer(conf config.Mail, log *slog.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(conf.Port),
	}
	if conf.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(conf.User),
			mail.WithPassword(conf.Password),
		)
	}
	if conf.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	client, err := mail.NewClient(conf.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}
	logger := log.With(sl.Module("notify.mail"))
	logger.With(
		slog.String("host", conf.Host),
		slog.Int("port", conf.Port),
		sl.Secret("user", conf.User),
	).Info("mail notifier initialized")
	return &Mailer{
		client: client,
		from:   conf.From,
		log:    logger,
	}, nil
}

func (m *Mailer) Send(ctx context.Context, intent entity.NotificationIntent) error {
	fail := func(err error) error {
		return &entity.DeliveryError{Kind: intent.Kind, Recipient: intent.Recipient, Err: err}
	}

	subject, body, err := composeMail(intent)
	if err != nil {
		return fail(err)
	}

	msg := mail.NewMsg()
	if err = msg.From(m.from); err != nil {
		return fail(fmt.Errorf("from: %w", err))
	}
	if err = msg.To(intent.Recipient); err != nil {
		return fail(fmt.Errorf("to: %w", err))
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err = m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fail(err)
	}
	m.log.With(
		slog.String("kind", string(intent.Kind)),
		slog.String("recipient", intent.Recipient),
	).Debug("mail sent")
	return nil
}
