package transfer

import (
	"time"

	"github.com/maheshrc27/campaignflow/internal/models"
)

type CampaignRequest struct {
	Subject            string `json:"subject" validate:"required,max=200"`
	Content            string `json:"content" validate:"required_unless=EmailType new-content"`
	PreviewText        string `json:"preview_text" validate:"max=200"`
	EmailType          string `json:"email_type" validate:"required,oneof=newsletter new-content custom"`
	ContentTitle       string `json:"content_title" validate:"required_if=EmailType new-content,max=300"`
	ContentURL         string `json:"content_url" validate:"required_if=EmailType new-content,omitempty,url"`
	ContentDescription string `json:"content_description" validate:"max=1000"`
	ContentType        string `json:"content_type" validate:"omitempty,oneof=blog project snippet"`
	MaxRetries         *int   `json:"max_retries" validate:"omitempty,min=0,max=10"`
}

func (r *CampaignRequest) ToModel() *models.Campaign {
	c := &models.Campaign{
		Subject:            r.Subject,
		Content:            r.Content,
		PreviewText:        r.PreviewText,
		EmailType:          r.EmailType,
		ContentTitle:       r.ContentTitle,
		ContentURL:         r.ContentURL,
		ContentDescription: r.ContentDescription,
		ContentType:        r.ContentType,
		MaxRetries:         models.DefaultMaxRetries,
	}
	if r.MaxRetries != nil {
		c.MaxRetries = *r.MaxRetries
	}
	return c
}

type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}
