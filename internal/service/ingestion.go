package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/fetcher"
	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/internal/repository"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

// FeedSource retrieves and parses a remote feed.
type FeedSource interface {
	FetchFeed(ctx context.Context, feedURL string, useProxy bool) ([]fetcher.Entry, error)
}

// SyncResult is the outcome of syncing one feed.
type SyncResult struct {
	Message string `json:"message"`
	Total   int    `json:"total"`
}

// FeedSyncOutcome is one feed's entry in a batch sync result.
type FeedSyncOutcome struct {
	FeedID  uint   `json:"feed_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Total   int    `json:"total"`
}

// BatchSyncResult aggregates per-feed outcomes of a batch sync.
type BatchSyncResult struct {
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Results []FeedSyncOutcome `json:"results"`
}

// IngestionService converts fetched feed entries into stored articles.
type IngestionService struct {
	feeds    repository.FeedRepository
	articles repository.ArticleRepository
	source   FeedSource
	logger   *zap.Logger
}

func NewIngestionService(feeds repository.FeedRepository, articles repository.ArticleRepository, source FeedSource, logger *zap.Logger) *IngestionService {
	return &IngestionService{
		feeds:    feeds,
		articles: articles,
		source:   source,
		logger:   logger,
	}
}

// SyncFeedArticles fetches one feed and persists its new entries. Duplicate
// (feed_id, link) entries from a re-fetch are skipped, not re-inserted.
func (s *IngestionService) SyncFeedArticles(ctx context.Context, feedID uint) (*SyncResult, error) {
	feed, err := s.feeds.GetFeed(feedID)
	if err != nil {
		return nil, err
	}
	if feed.URL == "" {
		return nil, errs.Validation("feed %d has no url", feedID)
	}

	// Proxy routing is feed-specific configuration, not caller-supplied.
	entries, err := s.source.FetchFeed(ctx, feed.URL, feed.UseProxy)
	if err != nil {
		if markErr := s.feeds.MarkFetchFailure(feedID, err.Error()); markErr != nil {
			s.logger.Error("Failed to record feed fetch failure",
				zap.Uint("feed_id", feedID), zap.Error(markErr))
		}
		return nil, err
	}

	if len(entries) == 0 {
		if err := s.feeds.MarkFetchSuccess(feedID, 0); err != nil {
			return nil, err
		}
		return &SyncResult{Message: "no new articles", Total: 0}, nil
	}

	articles := make([]models.Article, 0, len(entries))
	for _, entry := range entries {
		if entry.Link == "" {
			continue
		}
		articles = append(articles, models.Article{
			FeedID:        feedID,
			Link:          entry.Link,
			Title:         entry.Title,
			Summary:       entry.Summary,
			ThumbnailURL:  entry.ThumbnailURL,
			PublishedDate: entry.PublishedDate,
			Status:        models.ArticlePendingContent,
			MaxRetries:    3,
		})
	}

	inserted, err := s.articles.InsertNew(articles)
	if err != nil {
		if markErr := s.feeds.MarkFetchFailure(feedID, err.Error()); markErr != nil {
			s.logger.Error("Failed to record feed insert failure",
				zap.Uint("feed_id", feedID), zap.Error(markErr))
		}
		return nil, err
	}

	if err := s.feeds.MarkFetchSuccess(feedID, inserted); err != nil {
		return nil, err
	}

	s.logger.Info("Feed synced",
		zap.Uint("feed_id", feedID),
		zap.Int("fetched", len(entries)),
		zap.Int("inserted", inserted))

	if inserted == 0 {
		return &SyncResult{Message: "no new articles", Total: 0}, nil
	}
	return &SyncResult{Message: fmt.Sprintf("synced %d new articles", inserted), Total: inserted}, nil
}

// BatchSyncArticles fans SyncFeedArticles out across feeds. One feed's
// failure never aborts the others.
func (s *IngestionService) BatchSyncArticles(ctx context.Context, feedIDs []uint) *BatchSyncResult {
	result := &BatchSyncResult{Results: make([]FeedSyncOutcome, 0, len(feedIDs))}

	for _, feedID := range feedIDs {
		outcome := FeedSyncOutcome{FeedID: feedID}

		res, err := s.SyncFeedArticles(ctx, feedID)
		if err != nil {
			outcome.Status = models.FeedFetchFailed
			outcome.Message = err.Error()
			result.Failed++
		} else {
			outcome.Status = models.FeedFetchSuccess
			outcome.Message = res.Message
			outcome.Total = res.Total
			result.Success++
		}
		result.Results = append(result.Results, outcome)
	}

	return result
}
