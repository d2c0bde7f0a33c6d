package web

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/server/auth"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/dmitrijs2005/hiringhub/internal/server/services"
)

type identityView struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Roles    []models.Role `json:"roles"`
}

func newIdentityView(id *auth.Identity) identityView {
	return identityView{ID: id.Subject, Username: id.Name, Email: id.Email, Roles: id.Roles}
}

type accountView struct {
	ID        string             `json:"id"`
	Username  string             `json:"username"`
	Email     string             `json:"email"`
	Role      models.Role        `json:"role"`
	ResumeURL string             `json:"resume_url,omitempty"`
	Resume    *models.ResumeInfo `json:"resume,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

func newAccountView(a *models.Account) accountView {
	return accountView{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		ResumeURL: a.ResumeURL,
		Resume:    a.Resume(),
		CreatedAt: a.CreatedAt,
	}
}

type jobView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	TechStacks  string    `json:"tech_stacks"`
	Skills      []string  `json:"skills_required"`
	OpenTime    time.Time `json:"open_time"`
	CloseTime   time.Time `json:"close_time"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	JobType     string    `json:"job_type"`
	SalaryRange string    `json:"salary_range"`
	CreatedAt   time.Time `json:"created_at"`
	Active      bool      `json:"active"`
	Applicants  int       `json:"applicants"`
}

func newJobView(j *models.Job) jobView {
	skills := j.SkillsRequired
	if skills == nil {
		skills = []string{}
	}
	return jobView{
		ID:          j.ID,
		Title:       j.Title,
		TechStacks:  j.TechStacks,
		Skills:      skills,
		OpenTime:    j.OpenTime,
		CloseTime:   j.CloseTime,
		Company:     j.Company,
		Location:    j.Location,
		JobType:     j.JobType,
		SalaryRange: j.SalaryRange,
		CreatedAt:   j.CreatedAt,
	}
}

func newOwnedJobView(v services.JobView) jobView {
	out := newJobView(v.Job)
	out.Description = v.Description
	out.Active = v.Active
	out.Applicants = v.Applicants
	return out
}

type statsView struct {
	Count   int      `json:"count"`
	Average *float64 `json:"average_rating"`
}

func newStatsView(s models.FeedbackStats) statsView {
	return statsView{Count: s.Count, Average: s.Average}
}

type matchView struct {
	jobView
	Similarity  float64   `json:"similarity"`
	Applied     bool      `json:"applied"`
	Feedback    statsView `json:"feedback"`
	HasFeedback bool      `json:"has_feedback"`
	FeedbackID  string    `json:"feedback_id,omitempty"`
}

func newMatchView(m services.JobMatch) matchView {
	jv := newJobView(m.Job)
	jv.Active = m.Active
	jv.Applicants = m.Applicants
	return matchView{
		jobView:     jv,
		Similarity:  m.Similarity,
		Applied:     m.Applied,
		Feedback:    newStatsView(m.Feedback),
		HasFeedback: m.HasFeedback,
		FeedbackID:  m.FeedbackID,
	}
}

type applicantView struct {
	AccountID string          `json:"account_id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	ResumeURL string          `json:"resume_url,omitempty"`
	Score     json.RawMessage `json:"score"`
	AppliedAt time.Time       `json:"applied_at"`
	Feedback  string          `json:"feedback"`
}

func newApplicantView(a services.ApplicantView) applicantView {
	return applicantView{
		AccountID: a.AccountID,
		Username:  a.Username,
		Email:     a.Email,
		ResumeURL: a.ResumeURL,
		Score:     a.Score,
		AppliedAt: a.AppliedAt,
		Feedback:  a.Feedback,
	}
}

type feedbackView struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Text      string    `json:"text"`
	Sentiment *int      `json:"sentiment"`
	CreatedAt time.Time `json:"created_at"`
}

type feedbackReportView struct {
	Entries []feedbackView `json:"entries"`
	Stats   statsView      `json:"stats"`
}

func newFeedbackReportView(r *services.FeedbackReport) feedbackReportView {
	out := feedbackReportView{Entries: make([]feedbackView, 0, len(r.Entries)), Stats: newStatsView(r.Stats)}
	for _, e := range r.Entries {
		out.Entries = append(out.Entries, feedbackView{
			ID:        e.ID,
			AccountID: e.AccountID,
			Text:      e.Text,
			Sentiment: e.Sentiment,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

type interviewView struct {
	ID        string          `json:"id"`
	JobID     string          `json:"job_id"`
	JobTitle  string          `json:"job_title,omitempty"`
	Company   string          `json:"company,omitempty"`
	Score     json.RawMessage `json:"score"`
	CreatedAt time.Time       `json:"created_at"`
}
