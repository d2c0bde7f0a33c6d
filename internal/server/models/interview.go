package models

import (
	"encoding/json"
	"time"
)

type Interview struct {
	ID        string
	AccountID string
	JobID     string
	Score     json.RawMessage
	CreatedAt time.Time
}

// InterviewRecord is an interview joined with its job title for history views.
type InterviewRecord struct {
	Interview
	JobTitle string
	Company  string
}
