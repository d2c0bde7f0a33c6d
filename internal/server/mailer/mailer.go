// Package mailer delivers HTML email over SMTP.
package mailer

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/hiringhub/internal/server/config"
	"gopkg.in/gomail.v2"
)

var ErrNoRecipient = errors.New("no recipients specified")

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends messages through a gomail dialer.
type Mailer struct {
	from   string
	dialer dialer
}

func NewMailer(cfg config.SMTP) *Mailer {
	return &Mailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send delivers one HTML message to a single recipient.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	return m.dialer.DialAndSend(msg)
}
