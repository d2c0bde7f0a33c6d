package models

import (
	"encoding/json"
	"time"
)

// Application links a candidate to a job. Score is the opaque evaluation
// document, nil until one is produced.
type Application struct {
	AccountID string
	JobID     string
	Score     json.RawMessage
	AppliedAt time.Time
}

// Applicant is an application joined with the candidate's account.
type Applicant struct {
	AccountID string
	Username  string
	Email     string
	ResumeURL string
	Score     json.RawMessage
	AppliedAt time.Time
}
