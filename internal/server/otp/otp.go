// Package otp issues and verifies the six-digit codes that gate
// registration, login, password reset and profile changes.
package otp

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/logging"
	"github.com/dmitrijs2005/hiringhub/internal/server/session"
)

// Sender delivers an HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// PendingStore holds pending actions per session.
type PendingStore interface {
	PutPending(sid string, a session.PendingAction)
	DiscardPending(sid string, kind session.Kind, code string)
	Consume(sid string, kind session.Kind, code string) (session.PendingAction, error)
}

// Observer is notified about issued and verified codes.
type Observer interface {
	CodeIssued(kind session.Kind)
	CodeVerified(kind session.Kind, outcome string)
}

type nopObserver struct{}

func (nopObserver) CodeIssued(session.Kind)           {}
func (nopObserver) CodeVerified(session.Kind, string) {}

const codeSpace = 1_000_000

var subjects = map[session.Kind]string{
	session.KindRegister:       "Verify your email",
	session.KindLogin:          "Your login code",
	session.KindForgotPassword: "Password reset code",
	session.KindUpdateProfile:  "Confirm your profile changes",
}

// Authenticator ties code generation, storage and delivery together.
type Authenticator struct {
	store    PendingStore
	sender   Sender
	ttl      time.Duration
	logger   logging.Logger
	observer Observer
	now      func() time.Time
	generate func() (string, error)
}

func NewAuthenticator(store PendingStore, sender Sender, ttl time.Duration, l logging.Logger) *Authenticator {
	return &Authenticator{
		store:    store,
		sender:   sender,
		ttl:      ttl,
		logger:   l.With("module", "otp"),
		observer: nopObserver{},
		now:      time.Now,
		generate: GenerateCode,
	}
}

// WithObserver attaches o and returns a.
func (a *Authenticator) WithObserver(o Observer) *Authenticator {
	a.observer = o
	return a
}

// GenerateCode returns a uniformly sampled six-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// BeginAction issues a code for kind, stores it with payload under sid and
// mails it to email. When delivery fails the code is withdrawn and an
// UpstreamError is returned.
func (a *Authenticator) BeginAction(ctx context.Context, sid string, kind session.Kind, email string, payload any) (session.PendingAction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return session.PendingAction{}, fmt.Errorf("encode payload: %w", err)
	}

	code, err := a.generate()
	if err != nil {
		return session.PendingAction{}, fmt.Errorf("generate code: %w", err)
	}

	action := session.PendingAction{
		Kind:      kind,
		Code:      code,
		ExpiresAt: a.now().Add(a.ttl),
		Payload:   raw,
	}
	a.store.PutPending(sid, action)

	if err := a.sender.Send(ctx, email, subjects[kind], a.body(code)); err != nil {
		a.store.DiscardPending(sid, kind, code)
		a.logger.Error(ctx, "code delivery failed", "kind", kind, "error", err)
		return session.PendingAction{}, common.Upstream("email", err)
	}

	a.observer.CodeIssued(kind)
	a.logger.Info(ctx, "code issued", "kind", kind)
	return action, nil
}

// VerifyAction consumes the pending action of kind when code matches and
// returns its payload.
//
// Errors are common.ErrorNotFound, common.ErrExpired and common.ErrMismatch.
func (a *Authenticator) VerifyAction(ctx context.Context, sid string, kind session.Kind, code string) (json.RawMessage, error) {
	action, err := a.store.Consume(sid, kind, code)
	if err != nil {
		a.observer.CodeVerified(kind, outcome(err))
		a.logger.Warn(ctx, "code rejected", "kind", kind, "reason", err)
		return nil, err
	}

	a.observer.CodeVerified(kind, "ok")
	return action.Payload, nil
}

// VerifyInto is VerifyAction followed by decoding the payload into dst.
func (a *Authenticator) VerifyInto(ctx context.Context, sid string, kind session.Kind, code string, dst any) error {
	payload, err := a.VerifyAction(ctx, sid, kind, code)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func (a *Authenticator) body(code string) string {
	minutes := int(a.ttl.Minutes())
	return fmt.Sprintf(`<p>Your OTP code is: <strong>%s</strong></p>
<p>This code will expire in %d minutes.</p>
<p>If you did not request it, you can ignore this email.</p>`, code, minutes)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, common.ErrExpired):
		return "expired"
	case errors.Is(err, common.ErrMismatch):
		return "mismatch"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	default:
		return "error"
	}
}
