package social

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/campaignflow/internal/models"
)

const (
	twitterAPIBase    = "https://api.twitter.com"
	twitterUploadBase = "https://upload.twitter.com"
	twitterStatusURL  = "https://twitter.com/i/web/status/"

	twitterMaxChars = 280
	twitterMaxMedia = 4
)

type TwitterConfig struct {
	AccessToken   string
	APIBaseURL    string
	UploadBaseURL string
	HTTPClient    *http.Client
}

type Twitter struct {
	api         *restClient
	upload      *restClient
	mediaClient *http.Client
	configured  bool
}

func NewTwitter(cfg TwitterConfig) *Twitter {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = twitterAPIBase
	}
	if cfg.UploadBaseURL == "" {
		cfg.UploadBaseURL = twitterUploadBase
	}
	mediaClient := cfg.HTTPClient
	if mediaClient == nil {
		mediaClient = &http.Client{Timeout: defaultTimeout}
	}
	authed := bearerClient(cfg.HTTPClient, cfg.AccessToken)

	return &Twitter{
		api:         newRESTClient("Twitter", cfg.APIBaseURL, authed),
		upload:      newRESTClient("Twitter", cfg.UploadBaseURL, authed),
		mediaClient: mediaClient,
		configured:  cfg.AccessToken != "",
	}
}

func (t *Twitter) Platform() string { return models.PlatformTwitter }

func (t *Twitter) Configured() bool { return t.configured }

func (t *Twitter) Post(ctx context.Context, params PostParams) (result PostResult) {
	defer guard("Twitter", &result)

	if !t.configured {
		return notConfigured("Twitter")
	}
	if n := utf8.RuneCountInString(params.Content); n > twitterMaxChars {
		return failed(ErrorKindValidation, fmt.Sprintf("Tweet exceeds %d characters (%d)", twitterMaxChars, n))
	}
	if len(params.MediaURLs) > twitterMaxMedia {
		return failed(ErrorKindValidation, fmt.Sprintf("Twitter allows at most %d media attachments", twitterMaxMedia))
	}

	mediaIDs := make([]string, 0, len(params.MediaURLs))
	for _, u := range params.MediaURLs {
		id, err := t.uploadMedia(ctx, u)
		if err != nil {
			return apiFailure(err)
		}
		mediaIDs = append(mediaIDs, id)
	}

	body := map[string]any{"text": params.Content}
	if len(mediaIDs) > 0 {
		body["media"] = map[string]any{"media_ids": mediaIDs}
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := t.api.request(ctx, http.MethodPost, "/2/tweets", body, &resp); err != nil {
		return apiFailure(err)
	}
	if resp.Data.ID == "" {
		return failed(ErrorKindAPI, "Twitter API returned no tweet id")
	}

	return PostResult{Success: true, PostID: resp.Data.ID, PostURL: twitterStatusURL + resp.Data.ID}
}

func (t *Twitter) uploadMedia(ctx context.Context, mediaURL string) (string, error) {
	m, err := fetchMedia(ctx, t.mediaClient, mediaURL)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("media_category", twitterMediaCategory(m)); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("media", "upload")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(m.Data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	var resp struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := t.upload.send(ctx, http.MethodPost, "/1.1/media/upload.json", w.FormDataContentType(), &buf, &resp); err != nil {
		return "", err
	}
	if resp.MediaIDString == "" {
		return "", fmt.Errorf("Twitter media upload returned no media id")
	}
	return resp.MediaIDString, nil
}

func twitterMediaCategory(m *media) string {
	switch {
	case m.MIME == "image/gif":
		return "tweet_gif"
	case filetype.IsVideo(m.Data):
		return "tweet_video"
	default:
		return "tweet_image"
	}
}

func (t *Twitter) GetMetrics(ctx context.Context, postID string) (*PostMetrics, error) {
	if !t.configured {
		return nil, fmt.Errorf("Twitter credentials not configured")
	}
	if strings.TrimSpace(postID) == "" {
		return nil, fmt.Errorf("tweet id is empty")
	}

	var resp struct {
		Data struct {
			PublicMetrics struct {
				RetweetCount    int `json:"retweet_count"`
				ReplyCount      int `json:"reply_count"`
				LikeCount       int `json:"like_count"`
				QuoteCount      int `json:"quote_count"`
				ImpressionCount int `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	path := "/2/tweets/" + postID + "?tweet.fields=public_metrics"
	if err := t.api.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	pm := resp.Data.PublicMetrics
	return &PostMetrics{
		Likes:       pm.LikeCount,
		Shares:      pm.RetweetCount + pm.QuoteCount,
		Comments:    pm.ReplyCount,
		Impressions: pm.ImpressionCount,
	}, nil
}
