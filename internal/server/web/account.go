package web

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/hiringhub/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type registerRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=HR Candidate"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type codeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type resetRequest struct {
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type profileRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	NewPassword     string `json:"new_password" validate:"omitempty,strongpassword"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=NewPassword"`
}

type codeSentResponse struct {
	Message string `json:"message"`
}

var codeSent = codeSentResponse{Message: "A verification code has been sent to your email."}

func (s *Server) accountRoutes(r chi.Router) {
	r.With(s.limitCodes).Post("/register", s.register)
	r.With(s.limitVerify).Post("/register/verify", s.verifyRegister)
	r.With(s.limitCodes).Post("/login", s.login)
	r.With(s.limitVerify).Post("/login/verify", s.verifyLogin)
	r.With(s.limitCodes).Post("/forgot", s.forgotPassword)
	r.With(s.limitVerify).Post("/forgot/verify", s.verifyForgotPassword)
	r.Post("/reset", s.resetPassword)
	r.Post("/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(RequireRole())
		r.Get("/me", s.me)
		r.With(s.limitCodes).Post("/profile", s.updateProfile)
		r.With(s.limitVerify).Post("/profile/verify", s.verifyUpdateProfile)
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	err := s.accounts.BeginRegister(r.Context(), sessionID(r.Context()), services.RegisterForm{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.Role,
	})
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, codeSent)
}

func (s *Server) verifyRegister(w http.ResponseWriter, r *http.Request) {
	s.completeSignIn(w, r, s.accounts.VerifyRegister, http.StatusCreated)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	if err := s.accounts.BeginLogin(r.Context(), sessionID(r.Context()), req.Email, req.Password); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, codeSent)
}

func (s *Server) verifyLogin(w http.ResponseWriter, r *http.Request) {
	s.completeSignIn(w, r, s.accounts.VerifyLogin, http.StatusOK)
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	if err := s.accounts.BeginForgotPassword(r.Context(), sessionID(r.Context()), req.Email); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, codeSent)
}

func (s *Server) verifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	if err := s.accounts.VerifyForgotPassword(r.Context(), sessionID(r.Context()), req.Code); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, codeSentResponse{Message: "Code verified. You can now choose a new password."})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	if err := s.accounts.ResetPassword(r.Context(), sessionID(r.Context()), req.Password, req.ConfirmPassword); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, codeSentResponse{Message: "Password updated. Please log in."})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.accounts.Logout(sessionID(r.Context()))
	s.clearIdentityCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.Profile(r.Context(), identity(r.Context()).Subject)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(account))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	ctx := r.Context()
	err := s.accounts.BeginUpdateProfile(ctx, sessionID(ctx), identity(ctx).Subject, services.ProfileForm{
		Username:        req.Username,
		Email:           req.Email,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, codeSent)
}

func (s *Server) verifyUpdateProfile(w http.ResponseWriter, r *http.Request) {
	s.completeSignIn(w, r, s.accounts.VerifyUpdateProfile, http.StatusOK)
}

type verifyFunc func(ctx context.Context, sid, code string) (*services.SignedIn, error)

// completeSignIn checks the submitted code, moves the client to the rotated
// session id and issues the identity cookie.
func (s *Server) completeSignIn(w http.ResponseWriter, r *http.Request, verify verifyFunc, status int) {
	var req codeRequest
	if err := s.validator.Decode(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	signed, err := verify(r.Context(), sessionID(r.Context()), req.Code)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	if signed.SessionID != "" {
		s.setSessionCookie(w, signed.SessionID)
	}
	s.setIdentityCookie(w, signed.Token, signed.ExpiresAt)
	writeJSON(w, status, newIdentityView(signed.Identity))
}
