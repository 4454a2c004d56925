package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/fetcher"
	"github.com/funny-ai-box/paraluxflow/internal/models"
)

func newTestOrchestrator(feeds *fakeFeedRepo, syncLogs *fakeSyncLogRepo, source *fakeFeedSource) *SyncOrchestrator {
	logger := zap.NewNop()
	ingestion := NewIngestionService(feeds, newFakeArticleRepo(), source, logger)
	return NewSyncOrchestrator(feeds, syncLogs, ingestion, logger)
}

func TestSyncAllActiveFeedsRecordsRun(t *testing.T) {
	feeds := newFakeFeedRepo(
		activeFeed(1, "https://one.example/feed.xml"),
		activeFeed(2, "https://two.example/feed.xml"),
		activeFeed(3, "https://three.example/feed.xml"),
	)
	syncLogs := newFakeSyncLogRepo()
	source := newFakeFeedSource()
	source.entries["https://one.example/feed.xml"] = []fetcher.Entry{
		{Link: "https://one.example/a", Title: "A"},
		{Link: "https://one.example/b", Title: "B"},
	}
	source.entries["https://two.example/feed.xml"] = []fetcher.Entry{
		{Link: "https://two.example/c", Title: "C"},
	}
	source.fails["https://three.example/feed.xml"] = errors.New("dns failure")

	o := newTestOrchestrator(feeds, syncLogs, source)
	log, err := o.SyncAllActiveFeeds(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, models.SyncFailed, log.Status, "any failed feed fails the run")
	assert.Equal(t, 3, log.TotalFeeds)
	assert.Equal(t, 2, log.SyncedFeeds)
	assert.Equal(t, 1, log.FailedFeeds)
	assert.Equal(t, 3, log.TotalArticles)
	assert.Len(t, log.Details, 3)
	require.NotNil(t, log.EndTime)
	assert.Equal(t, models.TriggerManual, log.TriggeredBy)

	stored, err := syncLogs.GetBySyncID(log.SyncID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncFailed, stored.Status)
	assert.Len(t, stored.Details, 3)
}

func TestSyncAllActiveFeedsAllSucceed(t *testing.T) {
	feeds := newFakeFeedRepo(activeFeed(1, "https://one.example/feed.xml"))
	syncLogs := newFakeSyncLogRepo()
	source := newFakeFeedSource()
	source.entries["https://one.example/feed.xml"] = []fetcher.Entry{
		{Link: "https://one.example/a", Title: "A"},
	}

	o := newTestOrchestrator(feeds, syncLogs, source)
	log, err := o.SyncAllActiveFeeds(context.Background(), models.TriggerSchedule)
	require.NoError(t, err)

	assert.Equal(t, models.SyncSuccess, log.Status)
	assert.Equal(t, 1, log.SyncedFeeds)
	assert.Zero(t, log.FailedFeeds)
}

func TestSyncAllSkipsInactiveFeeds(t *testing.T) {
	inactive := activeFeed(2, "https://off.example/feed.xml")
	inactive.IsActive = false
	feeds := newFakeFeedRepo(activeFeed(1, "https://on.example/feed.xml"), inactive)
	syncLogs := newFakeSyncLogRepo()
	source := newFakeFeedSource()
	source.entries["https://on.example/feed.xml"] = []fetcher.Entry{
		{Link: "https://on.example/a", Title: "A"},
	}

	o := newTestOrchestrator(feeds, syncLogs, source)
	log, err := o.SyncAllActiveFeeds(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 1, log.TotalFeeds)
	assert.Len(t, log.Details, 1)
	assert.Equal(t, uint(1), log.Details[0].FeedID)
}

func TestEnqueueSyncAllCreatesInProgressLog(t *testing.T) {
	feeds := newFakeFeedRepo(activeFeed(1, "https://one.example/feed.xml"))
	syncLogs := newFakeSyncLogRepo()
	source := newFakeFeedSource()
	source.entries["https://one.example/feed.xml"] = []fetcher.Entry{
		{Link: "https://one.example/a", Title: "A"},
	}

	o := newTestOrchestrator(feeds, syncLogs, source)
	log, err := o.EnqueueSyncAll(models.TriggerManual)
	require.NoError(t, err)

	// The worker has not started, so the queued run is still in progress.
	stored, err := syncLogs.GetBySyncID(log.SyncID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncInProgress, stored.Status)
	assert.Equal(t, 1, stored.TotalFeeds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)
	defer o.Stop()

	require.Eventually(t, func() bool {
		stored, err := syncLogs.GetBySyncID(log.SyncID)
		return err == nil && stored.Status != models.SyncInProgress
	}, 2*time.Second, 10*time.Millisecond)

	stored, err = syncLogs.GetBySyncID(log.SyncID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSuccess, stored.Status)
	assert.Equal(t, 1, stored.TotalArticles)
}

func TestEnqueueSyncAllQueueFullRunsInline(t *testing.T) {
	feeds := newFakeFeedRepo(activeFeed(1, "https://one.example/feed.xml"))
	syncLogs := newFakeSyncLogRepo()
	source := newFakeFeedSource()
	source.entries["https://one.example/feed.xml"] = []fetcher.Entry{
		{Link: "https://one.example/a", Title: "A"},
	}

	o := newTestOrchestrator(feeds, syncLogs, source)

	// Worker not started, so queued jobs stay queued until the channel fills.
	for i := 0; i < cap(o.jobs); i++ {
		_, err := o.EnqueueSyncAll(models.TriggerManual)
		require.NoError(t, err)
	}

	log, err := o.EnqueueSyncAll(models.TriggerManual)
	require.NoError(t, err)

	// The overflow run executes synchronously: its log is final on return.
	stored, err := syncLogs.GetBySyncID(log.SyncID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSuccess, stored.Status)
	assert.Equal(t, 1, stored.TotalArticles)
}

func TestSyncFeedsScopedRun(t *testing.T) {
	feeds := newFakeFeedRepo(
		activeFeed(1, "https://one.example/feed.xml"),
		activeFeed(2, "https://two.example/feed.xml"),
	)
	syncLogs := newFakeSyncLogRepo()
	source := newFakeFeedSource()
	source.entries["https://two.example/feed.xml"] = []fetcher.Entry{
		{Link: "https://two.example/a", Title: "A"},
	}

	o := newTestOrchestrator(feeds, syncLogs, source)
	log, err := o.SyncFeeds(context.Background(), []uint{2}, models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 1, log.TotalFeeds)
	require.Len(t, log.Details, 1)
	assert.Equal(t, uint(2), log.Details[0].FeedID)
	assert.Equal(t, models.SyncSuccess, log.Status)
}
