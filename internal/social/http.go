package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 30 * time.Second
	maxMediaBytes  = 15 << 20
	maxErrorBody   = 4 << 10
)

// APIError is a non-2xx answer from a platform API.
type APIError struct {
	Platform string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error: HTTP %d", e.Platform, e.Status)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Platform, e.Status, e.Message)
}

func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorKindTimeout
	}
	return ErrorKindAPI
}

type restClient struct {
	platform   string
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
	logger     *slog.Logger
}

func newRESTClient(platform, baseURL string, httpClient *http.Client) *restClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &restClient{
		platform:   platform,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		headers:    map[string]string{},
		logger:     slog.Default().With("component", "social", "platform", platform),
	}
}

// bearerClient wraps base so that every request carries a static OAuth2 access token.
func bearerClient(base *http.Client, accessToken string) *http.Client {
	if base == nil {
		base = &http.Client{Timeout: defaultTimeout}
	}
	return &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   base.Transport,
		},
	}
}

func (c *restClient) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

// request sends a JSON body and decodes a JSON answer into result.
func (c *restClient) request(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, result)
}

// send issues a request with a pre-encoded body.
func (c *restClient) send(ctx context.Context, method, path, contentType string, body io.Reader, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, result)
}

func (c *restClient) do(req *http.Request, result any) error {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = stripURL(err)
		c.logger.Warn("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return fmt.Errorf("%s request failed: %s %s: %w", c.platform, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Platform: c.platform, Status: resp.StatusCode, Message: errorMessage(raw)}
		c.logger.Warn("api error", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
		return apiErr
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode %s response: %w", c.platform, err)
		}
	}
	return nil
}

// stripURL drops the request URL from transport errors. Query strings can
// carry credentials and the message ends up in failure_reason.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// errorMessage pulls a human readable message out of the error payloads the
// supported platforms return.
func errorMessage(raw []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
		Title   string          `json:"title"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return strings.TrimSpace(string(raw))
	}

	if len(payload.Error) > 0 {
		var s string
		if json.Unmarshal(payload.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	for _, m := range []string{payload.Detail, payload.Message, payload.Title} {
		if m != "" {
			return m
		}
	}
	return strings.TrimSpace(string(raw))
}

type media struct {
	Data []byte
	MIME string
}

// fetchMedia downloads a media URL and sniffs its type from the content.
func fetchMedia(ctx context.Context, client *http.Client, mediaURL string) (*media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create media request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media %s: %w", mediaURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download media %s: HTTP %d", mediaURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read media %s: %w", mediaURL, err)
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("media %s exceeds %d bytes", mediaURL, maxMediaBytes)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("media %s has an unsupported file type", mediaURL)
	}

	return &media{Data: data, MIME: kind.MIME.Value}, nil
}
