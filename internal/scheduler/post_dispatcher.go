package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/campaignflow/internal/metrics"
	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/social"
)

type PostStore interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	MarkPublished(ctx context.Context, id int64, externalID, postURL string, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type ProviderSource interface {
	Get(platform string) (social.Provider, error)
}

// PostDispatcher publishes one post through its platform's adapter.
type PostDispatcher struct {
	posts     PostStore
	providers ProviderSource
	metrics   *metrics.Metrics
	clock     func() time.Time
}

func NewPostDispatcher(posts PostStore, providers ProviderSource, m *metrics.Metrics, clock func() time.Time) *PostDispatcher {
	if clock == nil {
		clock = time.Now
	}
	return &PostDispatcher{posts: posts, providers: providers, metrics: m, clock: clock}
}

func (d *PostDispatcher) Dispatch(ctx context.Context, id int64) (Outcome, error) {
	p, err := d.posts.GetByID(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if p == nil {
		return Outcome{}, fmt.Errorf("post %d disappeared during dispatch", id)
	}

	provider, err := d.providers.Get(p.Platform)
	if err != nil {
		return Outcome{}, err
	}

	res := provider.Post(ctx, social.PostParams{
		Content:   p.Content,
		MediaURLs: p.MediaURLs,
		Metadata:  p.Metadata,
	})
	d.metrics.RecordProviderPost(p.Platform, res.Success)

	persistCtx := context.WithoutCancel(ctx)
	if !res.Success {
		if err := d.posts.MarkFailed(persistCtx, id, res.Error); err != nil {
			return Outcome{}, err
		}
		return Outcome{Error: res.Error, Recipients: 1, Failed: 1}, nil
	}

	if err := d.posts.MarkPublished(persistCtx, id, res.PostID, res.PostURL, d.clock()); err != nil {
		return Outcome{}, fmt.Errorf("record publish outcome: %w", err)
	}
	return Outcome{Succeeded: true, Recipients: 1, Sent: 1}, nil
}
