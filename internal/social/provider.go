package social

import (
	"context"
	"fmt"

	"github.com/maheshrc27/campaignflow/internal/models"
)

// ErrorKind classifies a failed post. The scheduler records every kind the
// same way; the kind is kept for operators and metrics.
type ErrorKind string

const (
	ErrorKindConfig     ErrorKind = "config"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindAPI        ErrorKind = "api"
	ErrorKindTimeout    ErrorKind = "timeout"
)

type PostParams struct {
	Content   string
	MediaURLs []string
	Metadata  models.PostMetadata
}

type PostResult struct {
	Success bool      `json:"success"`
	PostID  string    `json:"post_id,omitempty"`
	PostURL string    `json:"post_url,omitempty"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
}

type PostMetrics struct {
	Likes       int `json:"likes"`
	Shares      int `json:"shares"`
	Comments    int `json:"comments"`
	Impressions int `json:"impressions"`
}

// Provider publishes content to one platform. Post never returns an error:
// every failure, including a panic inside the adapter, comes back as a
// PostResult with Success=false.
type Provider interface {
	Platform() string
	Post(ctx context.Context, params PostParams) PostResult
}

type MetricsProvider interface {
	GetMetrics(ctx context.Context, postID string) (*PostMetrics, error)
}

type configurable interface {
	Configured() bool
}

func failed(kind ErrorKind, msg string) PostResult {
	return PostResult{Success: false, Error: msg, Kind: kind}
}

func notConfigured(name string) PostResult {
	return failed(ErrorKindConfig, name+" credentials not configured")
}

func apiFailure(err error) PostResult {
	return failed(classify(err), err.Error())
}

func guard(name string, result *PostResult) {
	if r := recover(); r != nil {
		*result = failed(ErrorKindAPI, fmt.Sprintf("%s adapter panic: %v", name, r))
	}
}

var _ = []Provider{(*Twitter)(nil), (*LinkedIn)(nil), (*Facebook)(nil), (*Devto)(nil)}
var _ MetricsProvider = (*Twitter)(nil)
