package social

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/maheshrc27/campaignflow/internal/models"
)

const (
	linkedInAPIBase   = "https://api.linkedin.com"
	linkedInUpdateURL = "https://www.linkedin.com/feed/update/"

	linkedInImageRecipe = "urn:li:digitalmediaRecipe:feedshare-image"
	linkedInUploadKey   = "com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"
)

type LinkedInConfig struct {
	AccessToken string
	APIBaseURL  string
	HTTPClient  *http.Client
}

type LinkedIn struct {
	api         *restClient
	mediaClient *http.Client
	configured  bool
}

func NewLinkedIn(cfg LinkedInConfig) *LinkedIn {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = linkedInAPIBase
	}
	mediaClient := cfg.HTTPClient
	if mediaClient == nil {
		mediaClient = &http.Client{Timeout: defaultTimeout}
	}

	api := newRESTClient("LinkedIn", cfg.APIBaseURL, bearerClient(cfg.HTTPClient, cfg.AccessToken))
	api.headers["X-Restli-Protocol-Version"] = "2.0.0"

	return &LinkedIn{
		api:         api,
		mediaClient: mediaClient,
		configured:  cfg.AccessToken != "",
	}
}

func (l *LinkedIn) Platform() string { return models.PlatformLinkedIn }

func (l *LinkedIn) Configured() bool { return l.configured }

func (l *LinkedIn) Post(ctx context.Context, params PostParams) (result PostResult) {
	defer guard("LinkedIn", &result)

	if !l.configured {
		return notConfigured("LinkedIn")
	}

	owner, err := l.memberURN(ctx)
	if err != nil {
		return apiFailure(err)
	}

	assets := make([]string, 0, len(params.MediaURLs))
	for _, u := range params.MediaURLs {
		asset, err := l.uploadImage(ctx, owner, u)
		if err != nil {
			return apiFailure(err)
		}
		assets = append(assets, asset)
	}

	share := map[string]any{
		"shareCommentary":    map[string]string{"text": params.Content},
		"shareMediaCategory": "NONE",
	}
	if len(assets) > 0 {
		items := make([]map[string]string, 0, len(assets))
		for _, a := range assets {
			items = append(items, map[string]string{"status": "READY", "media": a})
		}
		share["shareMediaCategory"] = "IMAGE"
		share["media"] = items
	}

	body := map[string]any{
		"author":         owner,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": share,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := l.api.request(ctx, http.MethodPost, "/v2/ugcPosts", body, &resp); err != nil {
		return apiFailure(err)
	}
	if resp.ID == "" {
		return failed(ErrorKindAPI, "LinkedIn API returned no post id")
	}

	return PostResult{Success: true, PostID: resp.ID, PostURL: linkedInUpdateURL + resp.ID}
}

func (l *LinkedIn) memberURN(ctx context.Context) (string, error) {
	var resp struct {
		Sub string `json:"sub"`
	}
	if err := l.api.request(ctx, http.MethodGet, "/v2/userinfo", nil, &resp); err != nil {
		return "", err
	}
	if resp.Sub == "" {
		return "", fmt.Errorf("LinkedIn userinfo returned no member id")
	}
	return "urn:li:person:" + resp.Sub, nil
}

// uploadImage registers an asset for the owner and uploads the binary to the
// URL LinkedIn hands back.
func (l *LinkedIn) uploadImage(ctx context.Context, owner, mediaURL string) (string, error) {
	m, err := fetchMedia(ctx, l.mediaClient, mediaURL)
	if err != nil {
		return "", err
	}

	register := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{linkedInImageRecipe},
			"owner":   owner,
			"serviceRelationships": []map[string]string{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}

	var reg struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := l.api.request(ctx, http.MethodPost, "/v2/assets?action=registerUpload", register, &reg); err != nil {
		return "", err
	}

	uploadURL := reg.Value.UploadMechanism[linkedInUploadKey].UploadURL
	if uploadURL == "" || reg.Value.Asset == "" {
		return "", fmt.Errorf("LinkedIn asset registration returned no upload url")
	}

	if err := l.api.send(ctx, http.MethodPut, uploadURL, m.MIME, bytes.NewReader(m.Data), nil); err != nil {
		return "", err
	}
	return reg.Value.Asset, nil
}
