// Package inference talks to the model service that parses resumes,
// computes embeddings, scores sentiment and searches external job boards.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/logging"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "inference"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 8 << 20

// BreakerSettings configures the circuit breaker around the service.
type BreakerSettings struct {
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

// ExternalJob is one result of a third-party job search.
type ExternalJob struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Path, e.Code, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  logging.Logger
}

func NewClient(baseURL string, timeout time.Duration, bs BreakerSettings, l logging.Logger) *Client {
	logger := l.With("module", "inference")

	settings := gobreaker.Settings{
		Name:    serviceName,
		Timeout: bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= bs.MinRequests && failureRatio >= bs.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed",
				"name", name, "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  logger,
	}
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.postJSON(ctx, "/embed", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

// Sentiment scores text as -1, 0 or 1.
func (c *Client) Sentiment(ctx context.Context, text string) (int, error) {
	var out struct {
		Score *int `json:"score"`
	}
	if err := c.postJSON(ctx, "/sentiment", map[string]string{"text": text}, &out); err != nil {
		return 0, err
	}
	if out.Score == nil || *out.Score < -1 || *out.Score > 1 {
		return 0, common.Upstream(serviceName, errors.New("sentiment: score missing or out of range"))
	}
	return *out.Score, nil
}

// SearchJobs asks the service for jobs on external boards matching prompt.
func (c *Client) SearchJobs(ctx context.Context, prompt string) ([]ExternalJob, error) {
	var out struct {
		Jobs []ExternalJob `json:"jobs"`
	}
	if err := c.postJSON(ctx, "/search_jobs", map[string]string{"custom_prompt": prompt}, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// ParseResume uploads a resume document and returns the extracted fields
// as the service produced them, along with their decoded form.
func (c *Client) ParseResume(ctx context.Context, filename string, data []byte) (json.RawMessage, *models.ResumeInfo, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}

	raw, err := c.do(ctx, "/parse-resume", mw.FormDataContentType(), body.Bytes())
	if err != nil {
		return nil, nil, err
	}

	var info models.ResumeInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, nil, common.Upstream(serviceName, fmt.Errorf("parse-resume: decode: %w", err))
	}
	return json.RawMessage(raw), &info, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	raw, err := c.do(ctx, path, "application/json", payload)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return common.Upstream(serviceName, fmt.Errorf("%s: decode: %w", path, err))
	}
	return nil
}

func (c *Client) do(ctx context.Context, path, contentType string, payload []byte) ([]byte, error) {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		return body, nil
	})
	if err != nil {
		c.logger.Debug(ctx, "inference call failed", "path", path, "error", err)
		return nil, common.Upstream(serviceName, err)
	}
	return raw, nil
}
