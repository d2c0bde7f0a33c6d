// Package web is the JSON HTTP API: account flows, the candidate workspace,
// HR job management and job feedback.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/logging"
	"github.com/dmitrijs2005/hiringhub/internal/server/auth"
	"github.com/dmitrijs2005/hiringhub/internal/server/inference"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/dmitrijs2005/hiringhub/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Accounts interface {
	BeginRegister(ctx context.Context, sid string, f services.RegisterForm) error
	VerifyRegister(ctx context.Context, sid, code string) (*services.SignedIn, error)
	BeginLogin(ctx context.Context, sid, email, password string) error
	VerifyLogin(ctx context.Context, sid, code string) (*services.SignedIn, error)
	BeginForgotPassword(ctx context.Context, sid, email string) error
	VerifyForgotPassword(ctx context.Context, sid, code string) error
	ResetPassword(ctx context.Context, sid, password, confirm string) error
	BeginUpdateProfile(ctx context.Context, sid, accountID string, f services.ProfileForm) error
	VerifyUpdateProfile(ctx context.Context, sid, code string) (*services.SignedIn, error)
	Logout(sid string)
	Profile(ctx context.Context, accountID string) (*models.Account, error)
	RenewToken(id *auth.Identity) (string, time.Time, error)
}

type Candidates interface {
	Dashboard(ctx context.Context, accountID string) (*services.Dashboard, error)
	UploadResume(ctx context.Context, accountID, filename string, data []byte) (*services.ResumeUpload, error)
	DownloadResume(ctx context.Context, accountID string) ([]byte, string, error)
	JobSearch(ctx context.Context, accountID string, p services.SearchParams) ([]services.JobMatch, error)
	Apply(ctx context.Context, accountID, jobID string) (bool, error)
	Withdraw(ctx context.Context, accountID, jobID string) error
	MockInterview(ctx context.Context, accountID, jobID string) (*services.InterviewBrief, error)
	SaveInterviewResult(ctx context.Context, accountID, jobID string, score json.RawMessage) (*models.Interview, error)
	InterviewHistory(ctx context.Context, accountID string) ([]*models.InterviewRecord, error)
	ThirdPartyJobs(ctx context.Context, prompt string) []inference.ExternalJob
}

type Jobs interface {
	CreateJob(ctx context.Context, ownerID string, in services.JobInput) (*models.Job, error)
	EditJob(ctx context.Context, ownerID, jobID string, in services.JobInput) (*models.Job, error)
	DeleteJob(ctx context.Context, ownerID, jobID string) error
	ListJobs(ctx context.Context, ownerID string) ([]services.JobView, error)
	GetJob(ctx context.Context, ownerID, jobID string) (*services.JobView, error)
	Overview(ctx context.Context, ownerID string) (*services.Overview, error)
	Applicants(ctx context.Context, ownerID, jobID string) ([]services.ApplicantView, error)
	ExportApplicants(ctx context.Context, ownerID, jobID string) ([]byte, string, error)
	JobFeedback(ctx context.Context, ownerID, jobID string) (*services.FeedbackReport, error)
}

type Feedback interface {
	Create(ctx context.Context, accountID, jobID, text string) (*models.Feedback, error)
	ListByJob(ctx context.Context, jobID string) (*services.FeedbackReport, error)
	Aggregate(ctx context.Context, jobID string) (models.FeedbackStats, error)
	Mine(ctx context.Context, accountID, jobID string) (bool, error)
}

// SessionStore is the server-side session state the middleware reads.
type SessionStore interface {
	auth.IdentityMirror
	Exists(sid string) bool
}

// Deps are the collaborators a Server routes to. Limiter throttles code
// requests and VerifyLimiter throttles code submissions.
type Deps struct {
	Accounts      Accounts
	Candidates    Candidates
	Jobs          Jobs
	Feedback      Feedback
	Sessions      SessionStore
	Limiter       *LimiterManager
	VerifyLimiter *LimiterManager
	Metrics       *Metrics
}

// Options are transport settings. TrustProxy takes the client address from
// X-Forwarded-For or X-Real-IP and must only be set behind a proxy that
// overwrites them.
type Options struct {
	Address      string
	SecretKey    string
	IdentityTTL  time.Duration
	CookieSecure bool
	TrustProxy   bool
}

type Server struct {
	address      string
	accounts     Accounts
	candidates   Candidates
	jobs         Jobs
	feedback     Feedback
	sessions     SessionStore
	limiter      *LimiterManager
	verifyLimit  *LimiterManager
	metrics      *Metrics
	validator    *Validator
	logger       logging.Logger
	secret       []byte
	identityTTL  time.Duration
	cookieSecure bool
	trustProxy   bool
}

func NewServer(d Deps, o Options, l logging.Logger) (*Server, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics()
	}
	if d.Limiter == nil {
		d.Limiter = NewLimiterManager(5, 3)
	}
	if d.VerifyLimiter == nil {
		d.VerifyLimiter = NewLimiterManager(10, 5)
	}

	return &Server{
		address:      o.Address,
		accounts:     d.Accounts,
		candidates:   d.Candidates,
		jobs:         d.Jobs,
		feedback:     d.Feedback,
		sessions:     d.Sessions,
		limiter:      d.Limiter,
		verifyLimit:  d.VerifyLimiter,
		metrics:      d.Metrics,
		validator:    v,
		logger:       l.With("module", "http_server"),
		secret:       []byte(o.SecretKey),
		identityTTL:  o.IdentityTTL,
		cookieSecure: o.CookieSecure,
		trustProxy:   o.TrustProxy,
	}, nil
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withSession)
		r.Use(s.withIdentity)

		r.Route("/account", s.accountRoutes)

		r.Route("/candidate", func(r chi.Router) {
			r.Use(RequireRole(models.RoleCandidate))
			s.candidateRoutes(r)
		})

		r.Route("/hr", func(r chi.Router) {
			r.Use(RequireRole(models.RoleHR))
			s.hrRoutes(r)
		})

		r.Route("/feedback", s.feedbackRoutes)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.limiter.Cleanup(10*time.Minute) + s.verifyLimit.Cleanup(10*time.Minute); n > 0 {
					s.logger.Debug(ctx, "dropped idle rate limiters", "count", n)
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
