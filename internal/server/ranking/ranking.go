// Package ranking scores jobs against a candidate by embedding similarity.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dmitrijs2005/hiringhub/internal/logging"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
)

const epsilon = 1e-10

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Ranked is a job with its similarity to the candidate.
type Ranked struct {
	Job        *models.Job
	Similarity float64
}

type Ranker struct {
	embedder Embedder
	logger   logging.Logger
}

func NewRanker(e Embedder, l logging.Logger) *Ranker {
	return &Ranker{embedder: e, logger: l.With("module", "ranking")}
}

// Embed returns the embedding for text, or nil when none is available.
// Failures are logged and never returned.
func (r *Ranker) Embed(ctx context.Context, text string) []float32 {
	if text == "" {
		return nil
	}
	v, err := r.embedder.Embed(ctx, text)
	if err != nil {
		r.logger.Warn(ctx, "embedding unavailable", "error", err)
		return nil
	}
	if len(v) == 0 {
		return nil
	}
	return v
}

// CosineSimilarity returns dot(a,b) / (|a|*|b| + 1e-10).
// It panics when the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("ranking: vector length mismatch %d != %d", len(a), len(b)))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	return dot / (math.Sqrt(na)*math.Sqrt(nb) + epsilon)
}

// Similarity is CosineSimilarity that yields 0 when either vector is
// missing or the dimensions disagree.
func Similarity(candidate, job []float32) float64 {
	if len(candidate) == 0 || len(job) == 0 || len(candidate) != len(job) {
		return 0
	}
	return CosineSimilarity(candidate, job)
}

// RankJobs scores every job against candidate and orders them by
// descending similarity. Equal scores keep their input order.
func RankJobs(candidate []float32, jobs []*models.Job) []Ranked {
	out := make([]Ranked, len(jobs))
	for i, j := range jobs {
		out[i] = Ranked{Job: j, Similarity: Similarity(candidate, j.EmbeddingSlice())}
	}

	sort.SliceStable(out, func(i, k int) bool {
		return out[i].Similarity > out[k].Similarity
	})

	return out
}
