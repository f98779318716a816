package social

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	config "github.com/maheshrc27/campaignflow/configs"
)

var ErrUnknownPlatform = errors.New("unknown platform")

type PlatformInfo struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// Factory maps a platform name to its adapter.
type Factory struct {
	providers map[string]Provider
}

func NewFactory(cfg config.Social, client *http.Client) *Factory {
	return NewFactoryWith(
		NewTwitter(TwitterConfig{AccessToken: cfg.TwitterAccessToken, HTTPClient: client}),
		NewLinkedIn(LinkedInConfig{AccessToken: cfg.LinkedInAccessToken, HTTPClient: client}),
		NewFacebook(FacebookConfig{PageID: cfg.FacebookPageID, PageAccessToken: cfg.FacebookPageAccessToken, HTTPClient: client}),
		NewDevto(DevtoConfig{APIKey: cfg.DevtoAPIKey, HTTPClient: client}),
	)
}

func NewFactoryWith(providers ...Provider) *Factory {
	f := &Factory{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		f.providers[p.Platform()] = p
	}
	return f
}

func (f *Factory) Get(platform string) (Provider, error) {
	p, ok := f.providers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	return p, nil
}

func (f *Factory) Platforms() []PlatformInfo {
	out := make([]PlatformInfo, 0, len(f.providers))
	for name, p := range f.providers {
		info := PlatformInfo{Name: name, Configured: true}
		if c, ok := p.(configurable); ok {
			info.Configured = c.Configured()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
