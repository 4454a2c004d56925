package repository

import (
	"time"

	"github.com/funny-ai-box/paraluxflow/internal/models"
)

// FeedRepository persists feeds and their fetch-status bookkeeping.
type FeedRepository interface {
	GetFeed(id uint) (*models.Feed, error)
	ListActiveFeeds() ([]models.Feed, error)
	// MarkFetchSuccess resets consecutive_failures and stamps
	// last_fetch_at / last_successful_fetch_at.
	MarkFetchSuccess(id uint, articleCount int) error
	// MarkFetchFailure records the error and bumps consecutive_failures.
	MarkFetchFailure(id uint, errMsg string) error
}

// ArticleRepository persists ingested articles and their crawl lifecycle.
type ArticleRepository interface {
	// InsertNew bulk-inserts articles, skipping any whose (feed_id, link)
	// already exists. Returns the number actually inserted.
	InsertNew(articles []models.Article) (int, error)
	GetArticle(id uint) (*models.Article, error)
	// ListPending returns crawlable articles: pending content, below the
	// retry budget, and either unlocked or holding a lock staler than
	// staleBefore.
	ListPending(limit int, staleBefore time.Time) ([]models.Article, error)
	// Claim locks an article for crawlerID. The update is conditional on
	// the article being unlocked or stale-locked; false means another
	// worker holds a live lock.
	Claim(articleID uint, crawlerID string, staleBefore, now time.Time) (bool, error)
	// SaveContent stores the fetched content, links it and marks the
	// article ready. Only the claiming crawler may submit.
	SaveContent(articleID uint, crawlerID string, content *models.ArticleContent) error
	// MarkFailure unlocks the article, bumps retry_count and records the
	// error so another worker can pick it up.
	MarkFailure(articleID uint, crawlerID, errMsg string) error
}

// SyncLogRepository persists sync-run records.
type SyncLogRepository interface {
	Create(log *models.SyncLog) error
	// Finalize writes the terminal state of a run exactly once.
	Finalize(log *models.SyncLog) error
	GetBySyncID(syncID string) (*models.SyncLog, error)
	List(limit, offset int) ([]models.SyncLog, int64, error)
}

// AgentRepository persists crawler agent registrations.
type AgentRepository interface {
	// Upsert creates or refreshes an agent keyed by agent_id.
	Upsert(agent *models.CrawlerAgent) (*models.CrawlerAgent, error)
	GetByAgentID(agentID string) (*models.CrawlerAgent, error)
	Update(agent *models.CrawlerAgent) error
	// List returns agents ordered by most recent heartbeat; statusFilter
	// may be empty for all.
	List(statusFilter string) ([]models.CrawlerAgent, error)
}

// HotTopicRepository persists hot-topic tasks, topics and submission logs.
type HotTopicRepository interface {
	CreateTask(task *models.HotTopicTask) error
	GetTask(taskID string) (*models.HotTopicTask, error)
	// ListPendingTasks returns due pending tasks oldest-created-first.
	ListPendingTasks(limit int, now time.Time) ([]models.HotTopicTask, error)
	// ClaimTask transitions pending -> claimed with a conditional update;
	// false means the task was missing or already claimed.
	ClaimTask(taskID, crawlerID string, now time.Time) (bool, error)
	CompleteTask(taskID string, now time.Time) error
	// FailTimedOutTasks marks tasks claimed before the deadline as failed.
	FailTimedOutTasks(claimedBefore time.Time) (int64, error)
	// UpsertTopics inserts topics, falling back to an update of the
	// mutable fields when (topic_date, platform, topic_title) already
	// exists. Returns the number of rows written.
	UpsertTopics(topics []models.HotTopic) (int, error)
	CreateLog(log *models.HotTopicLog) error
	// LoggedPlatforms returns the distinct platforms with at least one
	// submission log for the task.
	LoggedPlatforms(taskID string) ([]string, error)
	// LatestSnapshot returns the topic count and crawl time of the most
	// recent batch for a platform.
	LatestSnapshot(platform string) (int64, *time.Time, error)
}
