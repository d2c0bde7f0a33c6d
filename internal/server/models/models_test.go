package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("HR")
	assert.True(t, ok)
	assert.Equal(t, RoleHR, r)

	r, ok = ParseRole("Candidate")
	assert.True(t, ok)
	assert.Equal(t, RoleCandidate, r)

	_, ok = ParseRole("admin")
	assert.False(t, ok)
}

func TestAccount_Resume(t *testing.T) {
	a := &Account{}
	assert.Nil(t, a.Resume())

	a.ExtractedInfo = json.RawMessage(`{"name":"Ann","skills":["go","sql"],"experience":"3 years"}`)
	info := a.Resume()
	require.NotNil(t, info)
	assert.Equal(t, "Ann", info.Name)
	assert.Equal(t, []string{"go", "sql"}, info.Skills)

	a.ExtractedInfo = json.RawMessage(`["not","an","object"]`)
	assert.Nil(t, a.Resume())
}

func TestJob_DefaultsAndStatus(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	j := &Job{CloseTime: now.Add(time.Hour), Company: "Acme"}
	j.ApplyDefaults()

	assert.Equal(t, "Acme", j.Company)
	assert.Equal(t, DefaultLocation, j.Location)
	assert.Equal(t, DefaultJobType, j.JobType)
	assert.Equal(t, DefaultSalaryRange, j.SalaryRange)
	assert.True(t, j.IsActive(now))
	assert.False(t, j.IsActive(now.Add(2*time.Hour)))
}

func TestJob_EmbeddingSlice(t *testing.T) {
	j := &Job{}
	assert.Nil(t, j.EmbeddingSlice())

	v := pgvector.NewVector([]float32{1, 0})
	j.Embedding = &v
	assert.Equal(t, []float32{1, 0}, j.EmbeddingSlice())
}

func TestAggregateSentiment(t *testing.T) {
	tests := []struct {
		name    string
		items   []*Feedback
		count   int
		average *float64
	}{
		{name: "empty", items: nil, count: 0},
		{
			name:  "below threshold",
			items: []*Feedback{{Sentiment: intp(1)}, {Sentiment: intp(1)}, {Sentiment: intp(0)}, {Sentiment: intp(-1)}},
			count: 4,
		},
		{
			name: "five scored",
			items: []*Feedback{
				{Sentiment: intp(1)}, {Sentiment: intp(1)}, {Sentiment: intp(0)},
				{Sentiment: intp(-1)}, {Sentiment: intp(1)},
			},
			count:   5,
			average: func() *float64 { v := (5.0 + 5 + 3 + 1 + 5) / 5; return &v }(),
		},
		{
			name: "unscored do not count toward threshold",
			items: []*Feedback{
				{Sentiment: intp(1)}, {Sentiment: intp(1)}, {Sentiment: intp(0)},
				{Sentiment: intp(-1)}, {Sentiment: nil},
			},
			count: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateSentiment(tt.items)
			assert.Equal(t, tt.count, got.Count)
			if tt.average == nil {
				assert.Nil(t, got.Average)
				return
			}
			require.NotNil(t, got.Average)
			assert.InDelta(t, *tt.average, *got.Average, 1e-9)
		})
	}
}
