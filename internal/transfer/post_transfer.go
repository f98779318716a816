package transfer

import (
	"github.com/maheshrc27/campaignflow/internal/models"
)

type PostRequest struct {
	Content    string              `json:"content" validate:"required"`
	MediaURLs  []string            `json:"media_urls" validate:"omitempty,dive,url"`
	Platform   string              `json:"platform" validate:"required,oneof=twitter linkedin facebook devto"`
	Metadata   models.PostMetadata `json:"metadata"`
	MaxRetries *int                `json:"max_retries" validate:"omitempty,min=0,max=10"`
}

func (r *PostRequest) ToModel() *models.Post {
	p := &models.Post{
		Content:    r.Content,
		MediaURLs:  r.MediaURLs,
		Platform:   r.Platform,
		Metadata:   r.Metadata,
		MaxRetries: models.DefaultMaxRetries,
	}
	if p.MediaURLs == nil {
		p.MediaURLs = []string{}
	}
	if r.MaxRetries != nil {
		p.MaxRetries = *r.MaxRetries
	}
	return p
}
