package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/dbx"
	"github.com/dmitrijs2005/hiringhub/internal/logging"
	"github.com/dmitrijs2005/hiringhub/internal/server/auth"
	"github.com/dmitrijs2005/hiringhub/internal/server/config"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hiringhub/internal/server/session"
)

var (
	hashPassword   = auth.HashPassword
	verifyPassword = auth.VerifyPassword
	newSessionID   = session.NewID
)

// RegisterForm is the input of the registration flow.
type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Role            string
}

// ProfileForm is the input of the profile edit flow. An empty NewPassword
// keeps the current password.
type ProfileForm struct {
	Username        string
	Email           string
	NewPassword     string
	ConfirmPassword string
}

type registerPayload struct {
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"password_hash"`
	Role         models.Role `json:"role"`
}

type accountPayload struct {
	AccountID string `json:"account_id"`
}

type profilePayload struct {
	AccountID    string `json:"account_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash,omitempty"`
}

// AccountService implements registration, login, password recovery and
// profile changes. Every state change is gated by a one-time code.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codes       CodeIssuer
	sessions    SessionState
	jwtSecret   []byte
	identityTTL time.Duration
	logger      logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, codes CodeIssuer, sessions SessionState,
	cfg *config.Config, l logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		codes:       codes,
		sessions:    sessions,
		jwtSecret:   []byte(cfg.SecretKey),
		identityTTL: cfg.IdentityValidityDuration,
		logger:      l.With("module", "accounts"),
	}
}

// BeginRegister checks the form and mails a verification code.
func (s *AccountService) BeginRegister(ctx context.Context, sid string, f RegisterForm) error {
	role, ok := models.ParseRole(f.Role)
	if !ok {
		return common.NewFieldError("role", "Role must be HR or Candidate")
	}
	if f.Password != f.ConfirmPassword {
		return common.NewFieldError("confirm_password", "Passwords do not match")
	}

	email := normalizeEmail(f.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return err
	}

	hash, err := hashPassword(f.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	payload := registerPayload{
		Username:     strings.TrimSpace(f.Username),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	_, err = s.codes.BeginAction(ctx, sid, session.KindRegister, email, payload)
	return err
}

// VerifyRegister creates the account once the code is confirmed and signs
// the session in.
func (s *AccountService) VerifyRegister(ctx context.Context, sid, code string) (*SignedIn, error) {
	var p registerPayload
	if err := s.verify(ctx, sid, session.KindRegister, code, &p); err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).Create(ctx, &models.Account{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewFieldError("email", "Email is already registered")
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	s.logger.Info(ctx, "account registered", "account", account.ID, "role", account.Role)
	return s.signIn(sid, account)
}

// BeginLogin checks credentials and mails a login code.
func (s *AccountService) BeginLogin(ctx context.Context, sid, email, password string) error {
	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewValidationError("Invalid email or password")
		}
		return fmt.Errorf("error loading account: %w", err)
	}
	if !verifyPassword(password, account.PasswordHash) {
		return common.NewValidationError("Invalid email or password")
	}

	_, err = s.codes.BeginAction(ctx, sid, session.KindLogin, account.Email, accountPayload{AccountID: account.ID})
	return err
}

func (s *AccountService) VerifyLogin(ctx context.Context, sid, code string) (*SignedIn, error) {
	var p accountPayload
	if err := s.verify(ctx, sid, session.KindLogin, code, &p); err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, fmt.Errorf("error loading account: %w", err)
	}
	return s.signIn(sid, account)
}

// BeginForgotPassword mails a reset code when email belongs to an account.
// Unknown addresses succeed without sending anything.
func (s *AccountService) BeginForgotPassword(ctx context.Context, sid, email string) error {
	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "password reset for unknown email")
			return nil
		}
		return fmt.Errorf("error loading account: %w", err)
	}

	_, err = s.codes.BeginAction(ctx, sid, session.KindForgotPassword, account.Email, accountPayload{AccountID: account.ID})
	return err
}

// VerifyForgotPassword clears the session for a single password reset.
func (s *AccountService) VerifyForgotPassword(ctx context.Context, sid, code string) error {
	var p accountPayload
	if err := s.verify(ctx, sid, session.KindForgotPassword, code, &p); err != nil {
		return err
	}
	s.sessions.SetResetTarget(sid, p.AccountID)
	return nil
}

// ResetPassword sets a new password for the account cleared by
// VerifyForgotPassword.
func (s *AccountService) ResetPassword(ctx context.Context, sid, password, confirm string) error {
	if password != confirm {
		return common.NewFieldError("confirm_password", "Passwords do not match")
	}

	accountID, ok := s.sessions.TakeResetTarget(sid)
	if !ok {
		return common.ErrorForbidden
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repomanager.Accounts(s.db).UpdatePassword(ctx, accountID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	s.logger.Info(ctx, "password reset", "account", accountID)
	return nil
}

// BeginUpdateProfile checks the edit and mails a code to the current email.
func (s *AccountService) BeginUpdateProfile(ctx context.Context, sid, accountID string, f ProfileForm) error {
	if f.NewPassword != "" && f.NewPassword != f.ConfirmPassword {
		return common.NewFieldError("confirm_password", "Passwords do not match")
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("error loading account: %w", err)
	}

	email := normalizeEmail(f.Email)
	if err := s.ensureEmailFree(ctx, email, account.ID); err != nil {
		return err
	}

	p := profilePayload{
		AccountID: account.ID,
		Username:  strings.TrimSpace(f.Username),
		Email:     email,
	}
	if f.NewPassword != "" {
		if p.PasswordHash, err = hashPassword(f.NewPassword); err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
	}

	_, err = s.codes.BeginAction(ctx, sid, session.KindUpdateProfile, account.Email, p)
	return err
}

// VerifyUpdateProfile applies the pending edit and refreshes the identity.
func (s *AccountService) VerifyUpdateProfile(ctx context.Context, sid, code string) (*SignedIn, error) {
	var p profilePayload
	if err := s.verify(ctx, sid, session.KindUpdateProfile, code, &p); err != nil {
		return nil, err
	}

	var account *models.Account
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		if err := repo.UpdateProfile(ctx, p.AccountID, p.Username, p.Email, p.PasswordHash); err != nil {
			return err
		}
		var err error
		account, err = repo.GetByID(ctx, p.AccountID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewFieldError("email", "Email is already registered")
		}
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	s.logger.Info(ctx, "profile updated", "account", account.ID)
	return s.signIn(sid, account)
}

// Logout forgets everything held for the session.
func (s *AccountService) Logout(sid string) {
	s.sessions.Clear(sid)
}

func (s *AccountService) Profile(ctx context.Context, accountID string) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
}

// CreateHR creates an HR account directly, bypassing the code handshake.
func (s *AccountService) CreateHR(ctx context.Context, username, email, password string) (*models.Account, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account, err := s.repomanager.Accounts(s.db).Create(ctx, &models.Account{
		Username:     strings.TrimSpace(username),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         models.RoleHR,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	return account, nil
}

// RenewToken reissues the identity token for id.
func (s *AccountService) RenewToken(id *auth.Identity) (string, time.Time, error) {
	token, err := auth.GenerateToken(id, s.jwtSecret, s.identityTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Now().Add(s.identityTTL), nil
}

// signIn moves the session to a fresh id and mirrors the identity there.
func (s *AccountService) signIn(sid string, account *models.Account) (*SignedIn, error) {
	id := auth.NewIdentity(account)
	token, expiresAt, err := s.RenewToken(id)
	if err != nil {
		return nil, common.ErrorInternal
	}

	fresh, err := newSessionID()
	if err != nil {
		return nil, common.ErrorInternal
	}
	s.sessions.Rotate(sid, fresh)
	s.sessions.SetIdentity(fresh, id)
	return &SignedIn{Identity: id, Token: token, ExpiresAt: expiresAt, SessionID: fresh}, nil
}

func (s *AccountService) verify(ctx context.Context, sid string, kind session.Kind, code string, dst any) error {
	payload, err := s.codes.VerifyAction(ctx, sid, kind, code)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return nil
}

// ensureEmailFree fails when email belongs to an account other than selfID.
func (s *AccountService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("error loading account: %w", err)
	case existing.ID != selfID:
		return common.NewFieldError("email", "Email is already registered")
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
