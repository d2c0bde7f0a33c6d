package models

import (
	"encoding/json"
	"time"
)

// Role is the account role. It is fixed when the account is created.
type Role string

const (
	RoleHR        Role = "HR"
	RoleCandidate Role = "Candidate"
)

// ParseRole accepts the canonical role names.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleHR:
		return RoleHR, true
	case RoleCandidate:
		return RoleCandidate, true
	}
	return "", false
}

type Account struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	Role          Role
	ResumeURL     string
	ExtractedInfo json.RawMessage
	CreatedAt     time.Time
}

// ResumeInfo is the structured form of a parsed resume.
type ResumeInfo struct {
	Name                 string   `json:"name"`
	Email                string   `json:"email"`
	ContactNo            string   `json:"contact_no"`
	LinkedInProfile      string   `json:"linkedin_profile_link,omitempty"`
	Skills               []string `json:"skills"`
	Experience           string   `json:"experience"`
	TotalExperienceYears float64  `json:"total_experience_years,omitempty"`
	ProjectsBuilt        []string `json:"projects_built"`
	Achievements         []string `json:"achievements_like_awards_and_certifications"`
}

// Resume decodes ExtractedInfo. It returns nil when nothing was extracted
// or the stored document is not a resume object.
func (a *Account) Resume() *ResumeInfo {
	if len(a.ExtractedInfo) == 0 {
		return nil
	}
	var info ResumeInfo
	if err := json.Unmarshal(a.ExtractedInfo, &info); err != nil {
		return nil
	}
	return &info
}
