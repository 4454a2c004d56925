package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/internal/repository"
)

// syncJob is one queued background sync run. The SyncLog row written before
// enqueue is the durable record; the queue only carries the handle.
type syncJob struct {
	log     *models.SyncLog
	feedIDs []uint
}

// SyncOrchestrator drives synchronization across feeds and records each run
// as a SyncLog.
type SyncOrchestrator struct {
	feeds     repository.FeedRepository
	syncLogs  repository.SyncLogRepository
	ingestion *IngestionService
	logger    *zap.Logger

	jobs   chan syncJob
	stopCh chan struct{}
}

func NewSyncOrchestrator(feeds repository.FeedRepository, syncLogs repository.SyncLogRepository, ingestion *IngestionService, logger *zap.Logger) *SyncOrchestrator {
	return &SyncOrchestrator{
		feeds:     feeds,
		syncLogs:  syncLogs,
		ingestion: ingestion,
		logger:    logger,
		jobs:      make(chan syncJob, 16),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the background worker draining queued sync runs.
func (o *SyncOrchestrator) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case job := <-o.jobs:
				o.runFeeds(ctx, job.log, job.feedIDs)
			case <-o.stopCh:
				o.logger.Info("Sync worker stopped")
				return
			case <-ctx.Done():
				o.logger.Info("Sync worker context cancelled")
				return
			}
		}
	}()
}

func (o *SyncOrchestrator) Stop() {
	close(o.stopCh)
}

// SyncAllActiveFeeds runs a full synchronous sync across all active feeds.
func (o *SyncOrchestrator) SyncAllActiveFeeds(ctx context.Context, triggeredBy string) (*models.SyncLog, error) {
	log, feedIDs, err := o.prepareRun(triggeredBy, nil)
	if err != nil {
		return nil, err
	}
	o.runFeeds(ctx, log, feedIDs)
	return log, nil
}

// EnqueueSyncAll writes the in_progress SyncLog row, queues the run for the
// background worker and returns immediately. Progress is observed by polling
// the log via its sync_id.
func (o *SyncOrchestrator) EnqueueSyncAll(triggeredBy string) (*models.SyncLog, error) {
	log, feedIDs, err := o.prepareRun(triggeredBy, nil)
	if err != nil {
		return nil, err
	}

	select {
	case o.jobs <- syncJob{log: log, feedIDs: feedIDs}:
	default:
		// Queue full: run inline rather than dropping the already-recorded
		// run. The caller blocks for this one run, and the log is finalized
		// before we return; nothing outlives Stop.
		o.logger.Warn("Sync queue full, running inline", zap.String("sync_id", log.SyncID))
		o.runFeeds(context.Background(), log, feedIDs)
	}
	return log, nil
}

// SyncFeeds runs a scoped sync over an explicit feed list, recording its own
// SyncLog the same way a full run does.
func (o *SyncOrchestrator) SyncFeeds(ctx context.Context, feedIDs []uint, triggeredBy string) (*models.SyncLog, error) {
	log, ids, err := o.prepareRun(triggeredBy, feedIDs)
	if err != nil {
		return nil, err
	}
	o.runFeeds(ctx, log, ids)
	return log, nil
}

// prepareRun enumerates the target feeds and creates the in_progress log row.
func (o *SyncOrchestrator) prepareRun(triggeredBy string, feedIDs []uint) (*models.SyncLog, []uint, error) {
	if len(feedIDs) == 0 {
		feeds, err := o.feeds.ListActiveFeeds()
		if err != nil {
			return nil, nil, err
		}
		feedIDs = make([]uint, 0, len(feeds))
		for _, feed := range feeds {
			feedIDs = append(feedIDs, feed.ID)
		}
	}

	log := &models.SyncLog{
		SyncID:      uuid.NewString(),
		TotalFeeds:  len(feedIDs),
		Status:      models.SyncInProgress,
		StartTime:   time.Now(),
		TriggeredBy: triggeredBy,
		Details:     models.SyncDetailList{},
	}
	if err := o.syncLogs.Create(log); err != nil {
		return nil, nil, err
	}
	return log, feedIDs, nil
}

// runFeeds executes the run and finalizes the log exactly once. Failures are
// recorded per feed, never corrected at this level.
func (o *SyncOrchestrator) runFeeds(ctx context.Context, log *models.SyncLog, feedIDs []uint) {
	o.logger.Info("Starting sync run",
		zap.String("sync_id", log.SyncID),
		zap.Int("total_feeds", len(feedIDs)),
		zap.String("triggered_by", log.TriggeredBy))

	for _, feedID := range feedIDs {
		detail := o.syncOneFeed(ctx, feedID)
		log.Details = append(log.Details, detail)

		if detail.Status == models.FeedFetchSuccess {
			log.SyncedFeeds++
			log.TotalArticles += detail.ArticlesCount
		} else {
			log.FailedFeeds++
		}
	}

	end := time.Now()
	log.EndTime = &end
	log.TotalTimeSeconds = end.Sub(log.StartTime).Seconds()
	if log.FailedFeeds > 0 {
		log.Status = models.SyncFailed
	} else {
		log.Status = models.SyncSuccess
	}

	if err := o.syncLogs.Finalize(log); err != nil {
		o.logger.Error("Failed to finalize sync log",
			zap.String("sync_id", log.SyncID), zap.Error(err))
		return
	}

	o.logger.Info("Sync run completed",
		zap.String("sync_id", log.SyncID),
		zap.String("status", log.Status),
		zap.Int("synced_feeds", log.SyncedFeeds),
		zap.Int("failed_feeds", log.FailedFeeds),
		zap.Int("total_articles", log.TotalArticles),
		zap.Float64("seconds", log.TotalTimeSeconds))
}

// syncOneFeed isolates a single feed's outcome; a panic or error in one feed
// must not abort the rest of the run.
func (o *SyncOrchestrator) syncOneFeed(ctx context.Context, feedID uint) (detail models.FeedSyncDetail) {
	start := time.Now()
	detail = models.FeedSyncDetail{FeedID: feedID}

	defer func() {
		detail.SyncTime = time.Since(start).Seconds()
		if r := recover(); r != nil {
			detail.Status = models.FeedFetchFailed
			detail.Error = fmt.Sprintf("panic: %v", r)
			o.logger.Error("Feed sync panicked",
				zap.Uint("feed_id", feedID), zap.Any("panic", r))
		}
	}()

	if feed, err := o.feeds.GetFeed(feedID); err == nil {
		detail.FeedTitle = feed.Title
	}

	res, err := o.ingestion.SyncFeedArticles(ctx, feedID)
	if err != nil {
		detail.Status = models.FeedFetchFailed
		detail.Error = err.Error()
		return detail
	}

	detail.Status = models.FeedFetchSuccess
	detail.ArticlesCount = res.Total
	return detail
}
