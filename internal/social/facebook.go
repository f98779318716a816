package social

import (
	"context"
	"net/http"
	"net/url"

	"github.com/maheshrc27/campaignflow/internal/models"
)

const (
	facebookGraphBase = "https://graph.facebook.com/v18.0"
	facebookPostURL   = "https://www.facebook.com/"
)

type FacebookConfig struct {
	PageID          string
	PageAccessToken string
	APIBaseURL      string
	HTTPClient      *http.Client
}

// Facebook posts to a page feed. Only the first media URL is attached, as a link.
type Facebook struct {
	api    *restClient
	pageID string
	token  string
}

func NewFacebook(cfg FacebookConfig) *Facebook {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = facebookGraphBase
	}
	return &Facebook{
		api:    newRESTClient("Facebook", cfg.APIBaseURL, bearerClient(cfg.HTTPClient, cfg.PageAccessToken)),
		pageID: cfg.PageID,
		token:  cfg.PageAccessToken,
	}
}

func (f *Facebook) Platform() string { return models.PlatformFacebook }

func (f *Facebook) Configured() bool { return f.pageID != "" && f.token != "" }

func (f *Facebook) Post(ctx context.Context, params PostParams) (result PostResult) {
	defer guard("Facebook", &result)

	if !f.Configured() {
		return notConfigured("Facebook")
	}

	body := map[string]string{"message": params.Content}
	if len(params.MediaURLs) > 0 {
		body["link"] = params.MediaURLs[0]
	}

	var resp struct {
		ID string `json:"id"`
	}
	path := "/" + url.PathEscape(f.pageID) + "/feed"
	if err := f.api.request(ctx, http.MethodPost, path, body, &resp); err != nil {
		return apiFailure(err)
	}
	if resp.ID == "" {
		return failed(ErrorKindAPI, "Facebook API returned no post id")
	}

	return PostResult{Success: true, PostID: resp.ID, PostURL: facebookPostURL + resp.ID}
}
