// Package services contains server-side business logic: accounts and the
// one-time code flows, HR job management, the candidate workspace and
// job feedback.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/server/auth"
	"github.com/dmitrijs2005/hiringhub/internal/server/inference"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/dmitrijs2005/hiringhub/internal/server/session"
)

// CodeIssuer runs the one-time code handshake.
type CodeIssuer interface {
	BeginAction(ctx context.Context, sid string, kind session.Kind, email string, payload any) (session.PendingAction, error)
	VerifyAction(ctx context.Context, sid string, kind session.Kind, code string) (json.RawMessage, error)
}

// SessionState is the server-side per-session state the account flows touch.
type SessionState interface {
	SetIdentity(sid string, id *auth.Identity)
	SetResetTarget(sid, accountID string)
	TakeResetTarget(sid string) (string, bool)
	Rotate(oldSID, newSID string)
	Clear(sid string)
}

// BlobStore keeps documents addressed by URL.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, url string) error
}

// Embedder yields an embedding or nil when none is available.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

type ResumeParser interface {
	ParseResume(ctx context.Context, filename string, data []byte) (json.RawMessage, *models.ResumeInfo, error)
}

type SentimentScorer interface {
	Sentiment(ctx context.Context, text string) (int, error)
}

type JobSearcher interface {
	SearchJobs(ctx context.Context, prompt string) ([]inference.ExternalJob, error)
}

// SignedIn is the result of a completed login or registration.
// SessionID replaces the session id the flow started under.
type SignedIn struct {
	Identity  *auth.Identity
	Token     string
	ExpiresAt time.Time
	SessionID string
}
