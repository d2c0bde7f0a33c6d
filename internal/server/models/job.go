package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

const (
	DefaultCompany     = "Unknown Company"
	DefaultLocation    = "Not Specified"
	DefaultJobType     = "Full Time"
	DefaultSalaryRange = "Not Disclosed"
)

// Job is a posting owned by an HR account. DescriptionURL points at the
// description text in object storage. Embedding is nil when the embedding
// service had nothing for the job.
type Job struct {
	ID             string
	Title          string
	DescriptionURL string
	TechStacks     string
	SkillsRequired []string
	OpenTime       time.Time
	CloseTime      time.Time
	Company        string
	Location       string
	JobType        string
	SalaryRange    string
	PostedBy       string
	Embedding      *pgvector.Vector
	CreatedAt      time.Time
}

// ApplyDefaults fills blank display fields.
func (j *Job) ApplyDefaults() {
	if j.Company == "" {
		j.Company = DefaultCompany
	}
	if j.Location == "" {
		j.Location = DefaultLocation
	}
	if j.JobType == "" {
		j.JobType = DefaultJobType
	}
	if j.SalaryRange == "" {
		j.SalaryRange = DefaultSalaryRange
	}
}

// IsActive reports whether the job still accepts applicants at now.
func (j *Job) IsActive(now time.Time) bool {
	return j.CloseTime.After(now)
}

// EmbeddingSlice returns the embedding values or nil.
func (j *Job) EmbeddingSlice() []float32 {
	if j.Embedding == nil {
		return nil
	}
	return j.Embedding.Slice()
}

// JobStats carries per-job aggregates used by search.
type JobStats struct {
	JobID      string
	Applicants int
	Applied    bool
}
