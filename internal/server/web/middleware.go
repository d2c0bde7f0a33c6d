package web

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/server/auth"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/dmitrijs2005/hiringhub/internal/server/session"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	sessionCookie  = "hh_session"
	identityCookie = "hh_identity"
)

type ctxKey string

const (
	sessionIDKey ctxKey = "sessionID"
	identityKey  ctxKey = "identity"
)

func sessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

func identity(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

// newSessionID is a seam for tests.
var newSessionID = session.NewID

// withSession makes sure every request carries a live session id. Ids the
// store does not know are replaced, never adopted.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid string
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" && s.sessions.Exists(c.Value) {
			sid = c.Value
		} else {
			sid, err = newSessionID()
			if err != nil {
				writeError(r.Context(), s.logger, w, err)
				return
			}
			s.setSessionCookie(w, sid)
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withIdentity resolves the caller from the session mirror or the identity
// cookie and slides the cookie forward once half its lifetime has passed.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sid := sessionID(ctx)

		var token string
		if c, err := r.Cookie(identityCookie); err == nil {
			token = c.Value
		}

		id, ok := auth.ResolveIdentity(s.sessions, sid, token, s.secret)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if token != "" {
			if _, exp, err := auth.ParseToken(token, s.secret); err == nil && auth.NeedsRenewal(exp, s.identityTTL, time.Now()) {
				if renewed, newExp, err := s.accounts.RenewToken(id); err == nil {
					s.setIdentityCookie(w, renewed, newExp)
				} else {
					s.logger.Warn(ctx, "identity renewal failed", "error", err)
				}
			}
		}

		ctx = context.WithValue(ctx, identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects anonymous callers with 401 and callers lacking every
// one of roles with 403.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identity(r.Context())
			if id == nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required"})
				return
			}
			if len(roles) > 0 && !id.HasRole(roles...) {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// limitCodes throttles routes that send one-time codes, per client address.
func (s *Server) limitCodes(next http.Handler) http.Handler {
	return s.throttle(s.limiter, "too many code requests, try again later", next)
}

// limitVerify throttles code submissions, per client address.
func (s *Server) limitVerify(next http.Handler) http.Handler {
	return s.throttle(s.verifyLimit, "too many attempts, try again later", next)
}

func (s *Server) throttle(l *LimiterManager, message string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !l.Allow(client) {
			s.metrics.limited.Inc()
			s.logger.Warn(r.Context(), "rate limited", "client", client, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) setIdentityCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearIdentityCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
