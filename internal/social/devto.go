package social

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/campaignflow/internal/models"
)

const (
	devtoAPIBase = "https://dev.to/api"
	devtoTimeout = 10 * time.Second
	devtoMaxTags = 4
)

type DevtoConfig struct {
	APIKey     string
	APIBaseURL string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Devto struct {
	api        *restClient
	timeout    time.Duration
	configured bool
}

func NewDevto(cfg DevtoConfig) *Devto {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = devtoAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = devtoTimeout
	}
	api := newRESTClient("Dev.to", cfg.APIBaseURL, cfg.HTTPClient)
	api.headers["api-key"] = cfg.APIKey

	return &Devto{api: api, timeout: cfg.Timeout, configured: cfg.APIKey != ""}
}

func (d *Devto) Platform() string { return models.PlatformDevto }

func (d *Devto) Configured() bool { return d.configured }

func (d *Devto) Post(ctx context.Context, params PostParams) (result PostResult) {
	defer guard("Dev.to", &result)

	if !d.configured {
		return notConfigured("Dev.to")
	}
	if len(params.Metadata.Tags) > devtoMaxTags {
		return failed(ErrorKindValidation, fmt.Sprintf("Dev.to allows at most %d tags", devtoMaxTags))
	}

	title, body := articleTitle(params)
	if title == "" {
		return failed(ErrorKindValidation, "Dev.to article requires a title")
	}

	article := map[string]any{
		"title":         title,
		"body_markdown": body,
		"published":     true,
	}
	if len(params.Metadata.Tags) > 0 {
		article["tags"] = params.Metadata.Tags
	}
	if params.Metadata.CanonicalURL != "" {
		article["canonical_url"] = params.Metadata.CanonicalURL
	}
	if params.Metadata.Description != "" {
		article["description"] = params.Metadata.Description
	}
	if params.Metadata.Series != "" {
		article["series"] = params.Metadata.Series
	}
	if len(params.MediaURLs) > 0 {
		article["main_image"] = params.MediaURLs[0]
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var resp struct {
		ID  int64  `json:"id"`
		URL string `json:"url"`
	}
	if err := d.api.request(ctx, http.MethodPost, "/articles", map[string]any{"article": article}, &resp); err != nil {
		if classify(err) == ErrorKindTimeout {
			return failed(ErrorKindTimeout, "Dev.to API request timed out")
		}
		return apiFailure(err)
	}

	return PostResult{Success: true, PostID: strconv.FormatInt(resp.ID, 10), PostURL: resp.URL}
}

// articleTitle prefers the explicit metadata title. Otherwise the first
// content line becomes the title and the rest the body.
func articleTitle(params PostParams) (title, body string) {
	if t := strings.TrimSpace(params.Metadata.Title); t != "" {
		return t, params.Content
	}

	content := strings.TrimLeft(params.Content, "\r\n")
	first, rest, _ := strings.Cut(content, "\n")
	title = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(first), "#"))
	return title, strings.TrimLeft(rest, "\r\n")
}
