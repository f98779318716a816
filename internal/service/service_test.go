package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/repository"
	"github.com/maheshrc27/campaignflow/internal/scheduler"
	"github.com/maheshrc27/campaignflow/internal/social"
	"github.com/maheshrc27/campaignflow/internal/transfer"
	"github.com/maheshrc27/campaignflow/pkg/utils"
	oauth2api "google.golang.org/api/oauth2/v2"
)

type fakeCampaignRepo struct {
	repository.CampaignRepository
	campaigns map[int64]*models.Campaign
	limit     int
}

func (f *fakeCampaignRepo) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	return f.campaigns[id], nil
}

func (f *fakeCampaignRepo) List(ctx context.Context, status string, limit, offset int) ([]*models.Campaign, error) {
	f.limit = limit
	return nil, nil
}

func (f *fakeCampaignRepo) UpdateDraft(ctx context.Context, c *models.Campaign) (bool, error) {
	cur := f.campaigns[c.ID]
	if cur == nil || cur.Status != models.CampaignStatusDraft {
		return false, nil
	}
	c.Status = cur.Status
	f.campaigns[c.ID] = c
	return true, nil
}

func (f *fakeCampaignRepo) Remove(ctx context.Context, id int64) (bool, error) {
	cur := f.campaigns[id]
	if cur == nil || cur.Status == models.CampaignStatusSending {
		return false, nil
	}
	delete(f.campaigns, id)
	return true, nil
}

func TestCampaignServiceStateRules(t *testing.T) {
	repo := &fakeCampaignRepo{campaigns: map[int64]*models.Campaign{
		1: {ID: 1, Status: models.CampaignStatusDraft},
		2: {ID: 2, Status: models.CampaignStatusSent},
		3: {ID: 3, Status: models.CampaignStatusSending},
	}}
	s := NewCampaignService(repo, nil)
	ctx := context.Background()
	req := &transfer.CampaignRequest{Subject: "Updated", Content: "<p>x</p>", EmailType: models.EmailTypeCustom}

	if _, err := s.Get(ctx, 9); !errors.Is(err, scheduler.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.Update(ctx, 1, req); err != nil {
		t.Errorf("Update(draft) error = %v", err)
	}
	if repo.campaigns[1].Subject != "Updated" {
		t.Errorf("subject = %q, want Updated", repo.campaigns[1].Subject)
	}
	if err := s.Update(ctx, 2, req); !errors.Is(err, scheduler.ErrInvalidState) {
		t.Errorf("Update(sent) error = %v, want ErrInvalidState", err)
	}
	if err := s.Remove(ctx, 3); !errors.Is(err, scheduler.ErrInvalidState) {
		t.Errorf("Remove(sending) error = %v, want ErrInvalidState", err)
	}
	if err := s.Remove(ctx, 2); err != nil {
		t.Errorf("Remove(sent) error = %v", err)
	}

	list, err := s.List(ctx, "", 1000, -5)
	if err != nil || list == nil || len(list) != 0 {
		t.Errorf("List() = %v, %v; want empty non-nil slice", list, err)
	}
	if repo.limit != maxPageSize {
		t.Errorf("limit = %d, want clamp to %d", repo.limit, maxPageSize)
	}
}

func TestCampaignUpdateRetryBudget(t *testing.T) {
	one, five := 1, 5
	tests := []struct {
		name       string
		maxRetries *int
		wantErr    error
		wantMax    int
	}{
		{name: "omitted keeps stored budget", wantMax: 4},
		{name: "raised", maxRetries: &five, wantMax: 5},
		{name: "below retries used", maxRetries: &one, wantErr: ErrMaxRetriesTooLow, wantMax: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeCampaignRepo{campaigns: map[int64]*models.Campaign{
				1: {ID: 1, Status: models.CampaignStatusDraft, RetryCount: 2, MaxRetries: 4},
			}}
			s := NewCampaignService(repo, nil)
			req := &transfer.CampaignRequest{Subject: "s", Content: "<p>x</p>", EmailType: models.EmailTypeCustom, MaxRetries: tt.maxRetries}

			err := s.Update(context.Background(), 1, req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Update() error = %v, want %v", err, tt.wantErr)
			}
			if got := repo.campaigns[1].MaxRetries; got != tt.wantMax {
				t.Errorf("MaxRetries = %d, want %d", got, tt.wantMax)
			}
		})
	}
}

type fakePostRepo struct {
	repository.PostRepository
	posts   map[int64]*models.Post
	metrics [4]int
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return f.posts[id], nil
}

func (f *fakePostRepo) UpdateMetrics(ctx context.Context, id int64, likes, shares, comments, impressions int, at time.Time) error {
	f.metrics = [4]int{likes, shares, comments, impressions}
	return nil
}

type metricsProvider struct {
	platform string
}

func (p *metricsProvider) Platform() string { return p.platform }

func (p *metricsProvider) Post(ctx context.Context, params social.PostParams) social.PostResult {
	return social.PostResult{}
}

func (p *metricsProvider) GetMetrics(ctx context.Context, postID string) (*social.PostMetrics, error) {
	return &social.PostMetrics{Likes: 10, Shares: 3, Comments: 2, Impressions: 500}, nil
}

type postOnlyProvider struct {
	platform string
}

func (p *postOnlyProvider) Platform() string { return p.platform }

func (p *postOnlyProvider) Post(ctx context.Context, params social.PostParams) social.PostResult {
	return social.PostResult{}
}

func TestRefreshMetrics(t *testing.T) {
	repo := &fakePostRepo{posts: map[int64]*models.Post{
		1: {ID: 1, Platform: "twitter", Status: models.PostStatusPublished, ExternalPostID: "42"},
		2: {ID: 2, Platform: "twitter", Status: models.PostStatusScheduled},
		3: {ID: 3, Platform: "devto", Status: models.PostStatusPublished, ExternalPostID: "7"},
	}}
	factory := social.NewFactoryWith(&metricsProvider{platform: "twitter"}, &postOnlyProvider{platform: "devto"})
	s := NewPostService(repo, factory, nil)
	ctx := context.Background()

	p, err := s.RefreshMetrics(ctx, 1)
	if err != nil {
		t.Fatalf("RefreshMetrics() error = %v", err)
	}
	if p.Likes != 10 || p.Impressions != 500 || p.MetricsUpdatedAt == nil {
		t.Errorf("post = %+v", p)
	}
	if repo.metrics != [4]int{10, 3, 2, 500} {
		t.Errorf("stored metrics = %v", repo.metrics)
	}

	if _, err := s.RefreshMetrics(ctx, 2); !errors.Is(err, scheduler.ErrInvalidState) {
		t.Errorf("unpublished post error = %v, want ErrInvalidState", err)
	}
	if _, err := s.RefreshMetrics(ctx, 3); !errors.Is(err, ErrMetricsUnsupported) {
		t.Errorf("devto error = %v, want ErrMetricsUnsupported", err)
	}
	if _, err := s.RefreshMetrics(ctx, 4); !errors.Is(err, scheduler.ErrNotFound) {
		t.Errorf("missing post error = %v, want ErrNotFound", err)
	}
}

type fakeSubscriberRepo struct {
	repository.SubscriberRepository
	upserted    []string
	token       string
	deactivated []string
}

func (f *fakeSubscriberRepo) Upsert(ctx context.Context, email, name, token string) (*models.Subscriber, error) {
	f.upserted = append(f.upserted, email)
	f.token = token
	return &models.Subscriber{Email: email, Name: name, IsActive: true, UnsubscribeToken: token}, nil
}

func (f *fakeSubscriberRepo) Deactivate(ctx context.Context, email string) (bool, error) {
	f.deactivated = append(f.deactivated, email)
	return true, nil
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	codec, err := utils.NewUnsubscribeCodec("secret")
	if err != nil {
		t.Fatal(err)
	}
	repo := &fakeSubscriberRepo{}
	s := NewSubscriberService(repo, codec)
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, &transfer.SubscribeRequest{Email: "  Reader@Example.COM ", Name: " Ada "})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub.Email != "reader@example.com" || sub.Name != "Ada" {
		t.Errorf("subscriber = %+v", sub)
	}

	email, err := s.Unsubscribe(ctx, repo.token)
	if err != nil || email != "reader@example.com" {
		t.Fatalf("Unsubscribe() = %q, %v", email, err)
	}
	if len(repo.deactivated) != 1 {
		t.Errorf("deactivated = %v", repo.deactivated)
	}

	if _, err := s.Unsubscribe(ctx, repo.token+"x"); !errors.Is(err, ErrInvalidUnsubscribeToken) {
		t.Errorf("tampered token error = %v", err)
	}
	if len(repo.deactivated) != 1 {
		t.Errorf("tampered token deactivated someone: %v", repo.deactivated)
	}
}

type fakeStorage struct {
	keys    []string
	deleted []string
}

func (f *fakeStorage) Upload(ctx context.Context, key string, file []byte, contentType string) (string, error) {
	f.keys = append(f.keys, key)
	return "https://media.example.com/" + key, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeAssets struct {
	repository.MediaAssetRepository
	created []*models.MediaAsset
	assets  map[int64]*models.MediaAsset
}

func (f *fakeAssets) Create(ctx context.Context, ma *models.MediaAsset) (int64, error) {
	f.created = append(f.created, ma)
	return int64(len(f.created)), nil
}

func (f *fakeAssets) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return f.assets[id], nil
}

func (f *fakeAssets) Remove(ctx context.Context, id int64) error {
	delete(f.assets, id)
	return nil
}

func TestMediaUpload(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "png", data: png},
		{name: "empty", data: nil, wantErr: ErrEmptyUpload},
		{name: "text", data: []byte("just some words, not an image"), wantErr: ErrUnsupportedMedia},
		{name: "too large", data: make([]byte, MaxUploadSize+1), wantErr: ErrUploadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &fakeStorage{}
			assets := &fakeAssets{}
			s := &mediaService{ma: assets, storage: storage, newID: func() (string, error) { return "abc123", nil }}

			asset, err := s.Upload(context.Background(), 7, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Upload() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if len(storage.keys) != 0 {
					t.Errorf("rejected upload reached storage: %v", storage.keys)
				}
				return
			}
			if asset.FileName != "abc123.png" || asset.FileType != "image/png" || asset.UserID != 7 {
				t.Errorf("asset = %+v", asset)
			}
			if asset.FileURL != "https://media.example.com/abc123.png" || asset.ID != 1 {
				t.Errorf("asset = %+v", asset)
			}
		})
	}
}

func TestMediaRemoveChecksOwner(t *testing.T) {
	storage := &fakeStorage{}
	assets := &fakeAssets{assets: map[int64]*models.MediaAsset{5: {ID: 5, UserID: 1, FileName: "a.png"}}}
	s := NewMediaService(assets, storage)

	if err := s.Remove(context.Background(), 2, 5); !errors.Is(err, scheduler.ErrNotFound) {
		t.Errorf("Remove() by another user error = %v, want ErrNotFound", err)
	}
	if err := s.Remove(context.Background(), 1, 5); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(storage.deleted) != 1 || storage.deleted[0] != "a.png" {
		t.Errorf("deleted = %v", storage.deleted)
	}
}

type fakeUserRepo struct {
	repository.UserRepository
	users    map[string]*models.User
	created  []*models.User
	loggedIn []*models.User
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	u, ok := f.users[email]
	return u, ok, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u *models.User) (int64, error) {
	f.created = append(f.created, u)
	return 100, nil
}

func (f *fakeUserRepo) RecordLogin(ctx context.Context, u *models.User) error {
	f.loggedIn = append(f.loggedIn, u)
	return nil
}

func TestAuthorize(t *testing.T) {
	yes, no := true, false
	repo := &fakeUserRepo{users: map[string]*models.User{
		"owner@example.com": {ID: 1, Email: "owner@example.com"},
	}}
	s := &authService{admins: []string{"owner@example.com", "editor@example.com"}, u: repo}
	ctx := context.Background()

	tests := []struct {
		name    string
		profile *oauth2api.Userinfo
		wantID  int64
		wantErr error
	}{
		{name: "existing admin", profile: &oauth2api.Userinfo{Email: "Owner@Example.com", Id: "g1", Name: "Owner", VerifiedEmail: &yes}, wantID: 1},
		{name: "new admin", profile: &oauth2api.Userinfo{Email: "editor@example.com", Id: "g2", VerifiedEmail: &yes}, wantID: 100},
		{name: "stranger", profile: &oauth2api.Userinfo{Email: "someone@example.com", VerifiedEmail: &yes}, wantErr: ErrNotAdmin},
		{name: "unverified admin", profile: &oauth2api.Userinfo{Email: "owner@example.com", VerifiedEmail: &no}, wantErr: ErrNotAdmin},
		{name: "no verification flag", profile: &oauth2api.Userinfo{Email: "owner@example.com"}, wantErr: ErrNotAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := s.authorize(ctx, tt.profile)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("authorize() error = %v, want %v", err, tt.wantErr)
			}
			if id != tt.wantID {
				t.Errorf("id = %d, want %d", id, tt.wantID)
			}
		})
	}

	if len(repo.loggedIn) != 1 || repo.loggedIn[0].GoogleID != "g1" {
		t.Errorf("logins recorded = %+v", repo.loggedIn)
	}
	if len(repo.created) != 1 || repo.created[0].Email != "editor@example.com" {
		t.Errorf("users created = %+v", repo.created)
	}
}

type fakeKeyRepo struct {
	repository.ApiKeyRepository
	keys []*models.ApiKey
}

func (f *fakeKeyRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	return f.keys, nil
}

func (f *fakeKeyRepo) Create(ctx context.Context, k *models.ApiKey) (int64, error) {
	f.keys = append(f.keys, &models.ApiKey{ID: int64(len(f.keys) + 1), UserID: k.UserID, Label: k.Label, KeyHash: k.KeyHash, Hint: k.Hint})
	return int64(len(f.keys)), nil
}

func (f *fakeKeyRepo) OwnerByHash(ctx context.Context, keyHash string) (*int64, error) {
	for _, k := range f.keys {
		if k.KeyHash == keyHash {
			return &k.UserID, nil
		}
	}
	return nil, nil
}

func (f *fakeKeyRepo) Remove(ctx context.Context, id, userID int64) (bool, error) {
	for i, k := range f.keys {
		if k.ID == id && k.UserID == userID {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func TestApiKeyLimitAndMasking(t *testing.T) {
	repo := &fakeKeyRepo{}
	s := NewApiKeyService(repo)
	ctx := context.Background()

	var first *models.ApiKey
	for i := 0; i < maxApiKeysPerUser; i++ {
		k, err := s.Issue(ctx, 1, "ci")
		if err != nil {
			t.Fatalf("Issue() #%d error = %v", i+1, err)
		}
		if first == nil {
			first = k
		}
	}
	if _, err := s.Issue(ctx, 1, "one too many"); !errors.Is(err, ErrApiKeyLimit) {
		t.Errorf("sixth Issue() error = %v, want ErrApiKeyLimit", err)
	}

	if len(first.Key) < 40 || !strings.HasPrefix(first.Key, "cf_") {
		t.Errorf("issued key %q looks wrong", first.Key)
	}
	if repo.keys[0].KeyHash == first.Key || repo.keys[0].KeyHash == "" {
		t.Errorf("stored hash = %q", repo.keys[0].KeyHash)
	}

	list, err := s.List(ctx, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list[0].Key != "" || !strings.HasSuffix(list[0].Hint, "...") {
		t.Errorf("listed key = %+v, want hint only", list[0])
	}
}

func TestApiKeyAuthenticateAndRevoke(t *testing.T) {
	repo := &fakeKeyRepo{}
	s := NewApiKeyService(repo)
	ctx := context.Background()

	issued, err := s.Issue(ctx, 9, "cron")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name    string
		key     string
		want    int64
		wantErr error
	}{
		{name: "issued key", key: issued.Key, want: 9},
		{name: "unknown key", key: "cf_unknown", wantErr: ErrApiKeyInvalid},
		{name: "missing prefix", key: issued.Key[3:], wantErr: ErrApiKeyInvalid},
		{name: "stored hash is not a key", key: repo.keys[0].KeyHash, wantErr: ErrApiKeyInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Authenticate(ctx, tt.key)
			if !errors.Is(err, tt.wantErr) || got != tt.want {
				t.Errorf("Authenticate() = %d, %v; want %d, %v", got, err, tt.want, tt.wantErr)
			}
		})
	}

	if err := s.Revoke(ctx, 8, issued.ID); !errors.Is(err, ErrApiKeyNotFound) {
		t.Errorf("Revoke() by another user error = %v, want ErrApiKeyNotFound", err)
	}
	if err := s.Revoke(ctx, 9, issued.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := s.Authenticate(ctx, issued.Key); !errors.Is(err, ErrApiKeyInvalid) {
		t.Errorf("Authenticate() after revoke error = %v", err)
	}
}
