package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/funny-ai-box/paraluxflow/internal/fetcher"
	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

// In-memory repository fakes shared by the service tests.

type fakeFeedRepo struct {
	mu    sync.Mutex
	feeds map[uint]*models.Feed
}

func newFakeFeedRepo(feeds ...*models.Feed) *fakeFeedRepo {
	r := &fakeFeedRepo{feeds: make(map[uint]*models.Feed)}
	for _, f := range feeds {
		r.feeds[f.ID] = f
	}
	return r
}

func (r *fakeFeedRepo) GetFeed(id uint) (*models.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	feed, ok := r.feeds[id]
	if !ok {
		return nil, errs.NotFound("feed %d not found", id)
	}
	copied := *feed
	return &copied, nil
}

func (r *fakeFeedRepo) ListActiveFeeds() ([]models.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []models.Feed
	for _, f := range r.feeds {
		if f.IsActive {
			active = append(active, *f)
		}
	}
	return active, nil
}

func (r *fakeFeedRepo) MarkFetchSuccess(id uint, articleCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	feed, ok := r.feeds[id]
	if !ok {
		return errs.NotFound("feed %d not found", id)
	}
	now := time.Now()
	feed.LastFetchStatus = models.FeedFetchSuccess
	feed.LastFetchError = ""
	feed.LastFetchAt = &now
	feed.LastSuccessfulFetchAt = &now
	feed.ConsecutiveFailures = 0
	feed.TotalArticlesCount += articleCount
	return nil
}

func (r *fakeFeedRepo) MarkFetchFailure(id uint, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	feed, ok := r.feeds[id]
	if !ok {
		return errs.NotFound("feed %d not found", id)
	}
	now := time.Now()
	feed.LastFetchStatus = models.FeedFetchFailed
	feed.LastFetchError = errMsg
	feed.LastFetchAt = &now
	feed.ConsecutiveFailures++
	return nil
}

type fakeArticleRepo struct {
	mu       sync.Mutex
	nextID   uint
	articles map[uint]*models.Article
	contents map[uint]*models.ArticleContent
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{
		nextID:   1,
		articles: make(map[uint]*models.Article),
		contents: make(map[uint]*models.ArticleContent),
	}
}

func (r *fakeArticleRepo) InsertNew(articles []models.Article) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, a := range articles {
		if r.hasLinkLocked(a.FeedID, a.Link) {
			continue
		}
		a.ID = r.nextID
		r.nextID++
		copied := a
		r.articles[copied.ID] = &copied
		inserted++
	}
	return inserted, nil
}

func (r *fakeArticleRepo) hasLinkLocked(feedID uint, link string) bool {
	for _, a := range r.articles {
		if a.FeedID == feedID && a.Link == link {
			return true
		}
	}
	return false
}

func (r *fakeArticleRepo) GetArticle(id uint) (*models.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[id]
	if !ok {
		return nil, errs.NotFound("article %d not found", id)
	}
	copied := *a
	return &copied, nil
}

func (r *fakeArticleRepo) ListPending(limit int, staleBefore time.Time) ([]models.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []models.Article
	for _, a := range r.articles {
		if len(pending) >= limit {
			break
		}
		if a.Status != models.ArticlePendingContent || a.RetryCount >= a.MaxRetries {
			continue
		}
		if a.IsLocked && a.LockTimestamp != nil && a.LockTimestamp.After(staleBefore) {
			continue
		}
		pending = append(pending, *a)
	}
	return pending, nil
}

func (r *fakeArticleRepo) Claim(articleID uint, crawlerID string, staleBefore, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[articleID]
	if !ok || a.Status != models.ArticlePendingContent {
		return false, nil
	}
	if a.IsLocked && a.LockTimestamp != nil && a.LockTimestamp.After(staleBefore) {
		return false, nil
	}
	a.IsLocked = true
	a.LockTimestamp = &now
	a.CrawlerID = crawlerID
	return true, nil
}

func (r *fakeArticleRepo) SaveContent(articleID uint, crawlerID string, content *models.ArticleContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[articleID]
	if !ok || a.CrawlerID != crawlerID {
		return errs.NotFound("article %d not claimed by crawler %s", articleID, crawlerID)
	}
	content.ID = r.nextID
	r.nextID++
	r.contents[content.ID] = content
	a.Status = models.ArticleReady
	a.ContentID = &content.ID
	a.IsLocked = false
	a.LockTimestamp = nil
	a.ErrorMessage = ""
	return nil
}

func (r *fakeArticleRepo) MarkFailure(articleID uint, crawlerID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[articleID]
	if !ok || a.CrawlerID != crawlerID {
		return errs.NotFound("article %d not claimed by crawler %s", articleID, crawlerID)
	}
	a.IsLocked = false
	a.LockTimestamp = nil
	a.RetryCount++
	a.ErrorMessage = errMsg
	return nil
}

type fakeSyncLogRepo struct {
	mu   sync.Mutex
	logs map[string]*models.SyncLog
}

func newFakeSyncLogRepo() *fakeSyncLogRepo {
	return &fakeSyncLogRepo{logs: make(map[string]*models.SyncLog)}
}

func (r *fakeSyncLogRepo) Create(log *models.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *log
	r.logs[log.SyncID] = &copied
	return nil
}

func (r *fakeSyncLogRepo) Finalize(log *models.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.logs[log.SyncID]
	if !ok {
		return errs.NotFound("sync log %s not found", log.SyncID)
	}
	stored.TotalFeeds = log.TotalFeeds
	stored.SyncedFeeds = log.SyncedFeeds
	stored.FailedFeeds = log.FailedFeeds
	stored.TotalArticles = log.TotalArticles
	stored.Status = log.Status
	stored.EndTime = log.EndTime
	stored.TotalTimeSeconds = log.TotalTimeSeconds
	stored.Details = log.Details
	return nil
}

func (r *fakeSyncLogRepo) GetBySyncID(syncID string) (*models.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[syncID]
	if !ok {
		return nil, errs.NotFound("sync log %s not found", syncID)
	}
	copied := *log
	return &copied, nil
}

func (r *fakeSyncLogRepo) List(limit, offset int) ([]models.SyncLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var logs []models.SyncLog
	for _, log := range r.logs {
		logs = append(logs, *log)
	}
	return logs, int64(len(logs)), nil
}

type fakeAgentRepo struct {
	mu     sync.Mutex
	agents map[string]*models.CrawlerAgent
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: make(map[string]*models.CrawlerAgent)}
}

func (r *fakeAgentRepo) Upsert(agent *models.CrawlerAgent) (*models.CrawlerAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.agents[agent.AgentID]
	if ok {
		existing.Hostname = agent.Hostname
		existing.IPAddress = agent.IPAddress
		existing.Version = agent.Version
		existing.Capabilities = agent.Capabilities
		existing.Status = agent.Status
		existing.LastHeartbeat = agent.LastHeartbeat
		copied := *existing
		return &copied, nil
	}
	agent.ID = uint(len(r.agents) + 1)
	copied := *agent
	r.agents[agent.AgentID] = &copied
	result := copied
	return &result, nil
}

func (r *fakeAgentRepo) GetByAgentID(agentID string) (*models.CrawlerAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return nil, errs.NotFound("agent %s not registered", agentID)
	}
	copied := *agent
	return &copied, nil
}

func (r *fakeAgentRepo) Update(agent *models.CrawlerAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agent.AgentID]; !ok {
		return errs.NotFound("agent %s not registered", agent.AgentID)
	}
	copied := *agent
	r.agents[agent.AgentID] = &copied
	return nil
}

func (r *fakeAgentRepo) List(statusFilter string) ([]models.CrawlerAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var agents []models.CrawlerAgent
	for _, a := range r.agents {
		if statusFilter == "" || a.Status == statusFilter {
			agents = append(agents, *a)
		}
	}
	return agents, nil
}

type topicKey struct {
	date     string
	platform string
	title    string
}

type fakeHotTopicRepo struct {
	mu     sync.Mutex
	tasks  map[string]*models.HotTopicTask
	topics map[topicKey]*models.HotTopic
	logs   []models.HotTopicLog
}

func newFakeHotTopicRepo() *fakeHotTopicRepo {
	return &fakeHotTopicRepo{
		tasks:  make(map[string]*models.HotTopicTask),
		topics: make(map[topicKey]*models.HotTopic),
	}
}

func (r *fakeHotTopicRepo) CreateTask(task *models.HotTopicTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *task
	r.tasks[task.TaskID] = &copied
	return nil
}

func (r *fakeHotTopicRepo) GetTask(taskID string) (*models.HotTopicTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return nil, errs.NotFound("task %s not found", taskID)
	}
	copied := *task
	return &copied, nil
}

func (r *fakeHotTopicRepo) ListPendingTasks(limit int, now time.Time) ([]models.HotTopicTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tasks []models.HotTopicTask
	for _, t := range r.tasks {
		if len(tasks) >= limit {
			break
		}
		if t.Status != models.TaskPending {
			continue
		}
		if t.ScheduledTime != nil && t.ScheduledTime.After(now) {
			continue
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (r *fakeHotTopicRepo) ClaimTask(taskID, crawlerID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok || task.Status != models.TaskPending {
		return false, nil
	}
	task.Status = models.TaskClaimed
	task.CrawlerID = crawlerID
	task.ClaimedAt = &now
	return true, nil
}

func (r *fakeHotTopicRepo) CompleteTask(taskID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return errs.NotFound("task %s not found", taskID)
	}
	task.Status = models.TaskCompleted
	task.CompletedAt = &now
	return nil
}

func (r *fakeHotTopicRepo) FailTimedOutTasks(claimedBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired int64
	for _, t := range r.tasks {
		if t.Status == models.TaskClaimed && t.ClaimedAt != nil && t.ClaimedAt.Before(claimedBefore) {
			t.Status = models.TaskFailed
			expired++
		}
	}
	return expired, nil
}

func (r *fakeHotTopicRepo) UpsertTopics(topics []models.HotTopic) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Postgres rejects a multi-row insert whose ON CONFLICT target repeats
	// within the statement; mirror that so callers must dedupe first.
	inBatch := make(map[topicKey]bool, len(topics))
	for _, t := range topics {
		key := topicKey{date: t.TopicDate, platform: t.Platform, title: t.TopicTitle}
		if inBatch[key] {
			return 0, errs.Persistence("failed to upsert hot topics",
				errors.New("ON CONFLICT DO UPDATE command cannot affect row a second time"))
		}
		inBatch[key] = true
		if existing, ok := r.topics[key]; ok {
			existing.Rank = t.Rank
			existing.RankChange = t.RankChange
			existing.HotValue = t.HotValue
			existing.HeatLevel = t.HeatLevel
			existing.IsHot = t.IsHot
			existing.IsNew = t.IsNew
			existing.BatchID = t.BatchID
			existing.CrawlerID = t.CrawlerID
			existing.CrawlTime = t.CrawlTime
			continue
		}
		copied := t
		copied.ID = uint(len(r.topics) + 1)
		r.topics[key] = &copied
	}
	return len(topics), nil
}

func (r *fakeHotTopicRepo) CreateLog(log *models.HotTopicLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeHotTopicRepo) LoggedPlatforms(taskID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var platforms []string
	for _, log := range r.logs {
		if log.TaskID == taskID && !seen[log.Platform] {
			seen[log.Platform] = true
			platforms = append(platforms, log.Platform)
		}
	}
	return platforms, nil
}

func (r *fakeHotTopicRepo) LatestSnapshot(platform string) (int64, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.HotTopic
	for _, t := range r.topics {
		if t.Platform != platform {
			continue
		}
		if latest == nil || t.CrawlTime.After(latest.CrawlTime) {
			latest = t
		}
	}
	if latest == nil {
		return 0, nil, nil
	}
	var count int64
	for _, t := range r.topics {
		if t.Platform == platform && t.BatchID == latest.BatchID {
			count++
		}
	}
	crawl := latest.CrawlTime
	return count, &crawl, nil
}

// fakeFeedSource scripts per-URL fetch outcomes.
type fakeFeedSource struct {
	mu      sync.Mutex
	entries map[string][]fetcher.Entry
	fails   map[string]error
	calls   int
}

func newFakeFeedSource() *fakeFeedSource {
	return &fakeFeedSource{
		entries: make(map[string][]fetcher.Entry),
		fails:   make(map[string]error),
	}
}

func (f *fakeFeedSource) FetchFeed(_ context.Context, feedURL string, _ bool) ([]fetcher.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.fails[feedURL]; ok {
		return nil, err
	}
	if entries, ok := f.entries[feedURL]; ok {
		return entries, nil
	}
	return nil, errors.New("no fetch scripted for " + feedURL)
}
