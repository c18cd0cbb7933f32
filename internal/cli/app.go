package cli

import (
	"context"
	"fmt"

	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/content"
	"github.com/cloudseek/cloudseek/internal/logging"
)

// newFeed builds the article catalogue, its simulated upstream and the
// batching feed from cfg. The caller closes the feed.
func newFeed(ctx context.Context, cfg *config.Config) (*content.Feed, *content.Source, error) {
	log := logging.FromContext(ctx)

	repo := content.NewRepository(content.GenerateArticles(cfg.Content.Articles))
	src := content.NewSource(repo, cfg.Content, content.WithLogger(*log))
	feed, err := content.NewFeed(src, cfg.Content, cfg.Scheduler, content.WithLogger(*log))
	if err != nil {
		return nil, nil, fmt.Errorf("creating feed: %w", err)
	}

	log.Debug().
		Int("articles", repo.Len()).
		Int("max_batch_size", cfg.Scheduler.MaxBatchSize).
		Dur("max_wait", cfg.Scheduler.MaxWaitTime).
		Dur("cache_ttl", cfg.Scheduler.CacheTTL).
		Msg("feed ready")
	return feed, src, nil
}
