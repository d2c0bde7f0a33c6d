package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/dbx"
	"github.com/dmitrijs2005/hiringhub/internal/server/inference"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/applications"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/feedback"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/interviews"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/jobs"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func fastHashing(t *testing.T) {
	t.Helper()
	origHash, origVerify := hashPassword, verifyPassword
	t.Cleanup(func() { hashPassword, verifyPassword = origHash, origVerify })

	hashPassword = func(p string) (string, error) { return "hash:" + p, nil }
	verifyPassword = func(p, encoded string) bool { return encoded == "hash:"+p }
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- repositories ---

type fakeAccounts struct {
	accounts.Repository
	mu   sync.Mutex
	byID map[string]*models.Account
	seq  int
	err  error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[string]*models.Account{}}
}

func (f *fakeAccounts) add(a *models.Account) *models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if a.ID == "" {
		a.ID = fmt.Sprintf("acc-%d", f.seq)
	}
	a.CreatedAt = time.Now()
	f.byID[a.ID] = a
	return a
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, err := f.GetByEmail(context.Background(), a.Email); err == nil {
		return nil, common.ErrorAlreadyExists
	}
	return f.add(a), nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.byID {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, id, username, email, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Username, a.Email = username, email
	if hash != "" {
		a.PasswordHash = hash
	}
	return nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeAccounts) UpdateResume(_ context.Context, id, url string, extracted json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.ResumeURL, a.ExtractedInfo = url, extracted
	return nil
}

type fakeJobs struct {
	jobs.Repository
	list      []*models.Job
	seq       int
	lastQuery jobs.Filter
}

func (f *fakeJobs) Create(_ context.Context, j *models.Job) (*models.Job, error) {
	f.seq++
	j.ID = fmt.Sprintf("job-%d", f.seq)
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	f.list = append(f.list, j)
	return j, nil
}

func (f *fakeJobs) Update(_ context.Context, j *models.Job) error {
	for i, x := range f.list {
		if x.ID == j.ID && x.PostedBy == j.PostedBy {
			f.list[i] = j
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeJobs) Delete(_ context.Context, id, owner string) error {
	for i, x := range f.list {
		if x.ID == id && x.PostedBy == owner {
			f.list = append(f.list[:i], f.list[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeJobs) GetByID(_ context.Context, id string) (*models.Job, error) {
	for _, x := range f.list {
		if x.ID == id {
			return x, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeJobs) ListByOwner(_ context.Context, owner string) ([]*models.Job, error) {
	var out []*models.Job
	for _, x := range f.list {
		if x.PostedBy == owner {
			out = append(out, x)
		}
	}
	return out, nil
}

func (f *fakeJobs) Search(_ context.Context, filter jobs.Filter) ([]*models.Job, error) {
	f.lastQuery = filter
	var out []*models.Job
	for _, x := range f.list {
		if filter.Query != "" && !strings.Contains(strings.ToLower(x.Title), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, x)
	}
	return out, nil
}

func (f *fakeJobs) CountActiveByOwner(_ context.Context, owner string, now time.Time) (int, error) {
	n := 0
	for _, x := range f.list {
		if x.PostedBy == owner && x.IsActive(now) {
			n++
		}
	}
	return n, nil
}

type fakeApplications struct {
	applications.Repository
	applied    map[[2]string]bool
	applicants map[string][]*models.Applicant
	ownerCount int
}

func newFakeApplications() *fakeApplications {
	return &fakeApplications{applied: map[[2]string]bool{}, applicants: map[string][]*models.Applicant{}}
}

func (f *fakeApplications) Create(_ context.Context, acc, job string) (bool, error) {
	k := [2]string{acc, job}
	if f.applied[k] {
		return false, nil
	}
	f.applied[k] = true
	return true, nil
}

func (f *fakeApplications) Delete(_ context.Context, acc, job string) error {
	k := [2]string{acc, job}
	if !f.applied[k] {
		return common.ErrorNotFound
	}
	delete(f.applied, k)
	return nil
}

func (f *fakeApplications) Exists(_ context.Context, acc, job string) (bool, error) {
	return f.applied[[2]string{acc, job}], nil
}

func (f *fakeApplications) CountByJob(context.Context) (map[string]int, error) {
	out := map[string]int{}
	for k := range f.applied {
		out[k[1]]++
	}
	return out, nil
}

func (f *fakeApplications) JobIDsByAccount(_ context.Context, acc string) (map[string]bool, error) {
	out := map[string]bool{}
	for k := range f.applied {
		if k[0] == acc {
			out[k[1]] = true
		}
	}
	return out, nil
}

func (f *fakeApplications) ListApplicants(_ context.Context, job string) ([]*models.Applicant, error) {
	return f.applicants[job], nil
}

func (f *fakeApplications) CountForOwner(context.Context, string) (int, error) {
	return f.ownerCount, nil
}

type fakeFeedback struct {
	feedback.Repository
	items []*models.Feedback
	seq   int
}

func (f *fakeFeedback) Create(_ context.Context, fb *models.Feedback) (*models.Feedback, error) {
	for _, x := range f.items {
		if x.AccountID == fb.AccountID && x.JobID == fb.JobID {
			return nil, common.ErrorAlreadyExists
		}
	}
	f.seq++
	fb.ID = fmt.Sprintf("fb-%d", f.seq)
	f.items = append(f.items, fb)
	return fb, nil
}

func (f *fakeFeedback) ListByJob(_ context.Context, job string) ([]*models.Feedback, error) {
	var out []*models.Feedback
	for _, x := range f.items {
		if x.JobID == job {
			out = append(out, x)
		}
	}
	return out, nil
}

func (f *fakeFeedback) GetByAccountAndJob(_ context.Context, acc, job string) (*models.Feedback, error) {
	for _, x := range f.items {
		if x.AccountID == acc && x.JobID == job {
			return x, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFeedback) SentimentsByJob(context.Context) (map[string][]*models.Feedback, error) {
	out := map[string][]*models.Feedback{}
	for _, x := range f.items {
		out[x.JobID] = append(out[x.JobID], x)
	}
	return out, nil
}

type fakeInterviews struct {
	interviews.Repository
	items      []*models.Interview
	ownerCount int
}

func (f *fakeInterviews) Create(_ context.Context, in *models.Interview) (*models.Interview, error) {
	in.ID = fmt.Sprintf("int-%d", len(f.items)+1)
	f.items = append(f.items, in)
	return in, nil
}

func (f *fakeInterviews) ListByAccount(_ context.Context, acc string) ([]*models.InterviewRecord, error) {
	var out []*models.InterviewRecord
	for _, x := range f.items {
		if x.AccountID == acc {
			out = append(out, &models.InterviewRecord{Interview: *x})
		}
	}
	return out, nil
}

func (f *fakeInterviews) CountForOwner(context.Context, string) (int, error) {
	return f.ownerCount, nil
}

type fakeRepoManager struct {
	accounts     *fakeAccounts
	jobs         *fakeJobs
	applications *fakeApplications
	feedback     *fakeFeedback
	interviews   *fakeInterviews
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		accounts:     newFakeAccounts(),
		jobs:         &fakeJobs{},
		applications: newFakeApplications(),
		feedback:     &fakeFeedback{},
		interviews:   &fakeInterviews{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository         { return m.accounts }
func (m *fakeRepoManager) Jobs(dbx.DBTX) jobs.Repository                 { return m.jobs }
func (m *fakeRepoManager) Applications(dbx.DBTX) applications.Repository { return m.applications }
func (m *fakeRepoManager) Feedback(dbx.DBTX) feedback.Repository         { return m.feedback }
func (m *fakeRepoManager) Interviews(dbx.DBTX) interviews.Repository     { return m.interviews }

// --- collaborators ---

type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	seq       int
	uploadErr error
}

func newMemBlobs() *memBlobs { return &memBlobs{objects: map[string][]byte{}} }

func (b *memBlobs) Upload(_ context.Context, data []byte, filename string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return "", b.uploadErr
	}
	b.seq++
	url := fmt.Sprintf("http://blobs/%d/%s", b.seq, filename)
	b.objects[url] = append([]byte(nil), data...)
	return url, nil
}

func (b *memBlobs) Download(_ context.Context, url string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[url]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return data, nil
}

func (b *memBlobs) Delete(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, url)
	b.deleted = append(b.deleted, url)
	return nil
}

// mapEmbedder returns the vector registered for the first key contained
// in the text, or nil.
type mapEmbedder map[string][]float32

func (m mapEmbedder) Embed(_ context.Context, text string) []float32 {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(text, k) {
			return m[k]
		}
	}
	return nil
}

type fakeParser struct {
	raw  json.RawMessage
	info *models.ResumeInfo
	err  error
}

func (p *fakeParser) ParseResume(context.Context, string, []byte) (json.RawMessage, *models.ResumeInfo, error) {
	return p.raw, p.info, p.err
}

type fakeScorer struct {
	score int
	err   error
}

func (s *fakeScorer) Sentiment(context.Context, string) (int, error) { return s.score, s.err }

type fakeSearcher struct {
	jobs []inference.ExternalJob
	err  error
}

func (s *fakeSearcher) SearchJobs(context.Context, string) ([]inference.ExternalJob, error) {
	return s.jobs, s.err
}

// --- mail capture ---

type captureSender struct {
	mu   sync.Mutex
	to   []string
	body []string
}

func (c *captureSender) Send(_ context.Context, to, _, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.to = append(c.to, to)
	c.body = append(c.body, body)
	return nil
}

var codeRe = regexp.MustCompile(`<strong>(\d{6})</strong>`)

func (c *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.body) == 0 {
		t.Fatalf("no mail sent")
	}
	m := codeRe.FindStringSubmatch(c.body[len(c.body)-1])
	if m == nil {
		t.Fatalf("no code in mail: %q", c.body[len(c.body)-1])
	}
	return m[1]
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.body)
}
