package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/internal/repository"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
	"github.com/funny-ai-box/paraluxflow/pkg/util"
)

// hotTopicPlatforms is the fixed whitelist of supported platforms.
var hotTopicPlatforms = []string{"weibo", "zhihu", "baidu", "toutiao", "douyin"}

// TopicPayload is one trending item inside a result submission.
type TopicPayload struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	HotValue    string `json:"hot_value"`
	Description string `json:"description"`
	IsHot       bool   `json:"is_hot"`
	IsNew       bool   `json:"is_new"`
	Rank        int    `json:"rank"`
	RankChange  int    `json:"rank_change"`
}

// TaskResultInput is a worker's submission for one (task, platform).
type TaskResultInput struct {
	Status         string         `json:"status"`
	Topics         []TopicPayload `json:"topics"`
	BatchID        string         `json:"batch_id"`
	TopicDate      string         `json:"topic_date"`
	CrawlerID      string         `json:"crawler_id"`
	ProcessingTime float64        `json:"processing_time"`
	ErrorMessage   string         `json:"error_message"`
}

// PlatformStat is the latest-snapshot summary for one platform.
type PlatformStat struct {
	Platform    string     `json:"platform"`
	TopicsCount int64      `json:"topics_count"`
	LatestCrawl *time.Time `json:"latest_crawl"`
}

// HotTopicService owns the hot-topic task lifecycle: creation, claiming,
// result persistence and completion detection.
type HotTopicService struct {
	topics repository.HotTopicRepository
	logger *zap.Logger
}

func NewHotTopicService(topics repository.HotTopicRepository, logger *zap.Logger) *HotTopicService {
	return &HotTopicService{topics: topics, logger: logger}
}

// CreateTask creates a pending task for the whitelisted subset of the
// requested platforms. An optional RFC3339 schedule time makes it scheduled
// instead of manual.
func (s *HotTopicService) CreateTask(userID string, platforms []string, scheduleTime string) (*models.HotTopicTask, error) {
	filtered := filterPlatforms(platforms)
	if len(filtered) == 0 {
		return nil, errs.Validation("no valid platforms in %v", platforms)
	}

	task := &models.HotTopicTask{
		TaskID:      uuid.NewString(),
		Status:      models.TaskPending,
		Platforms:   filtered,
		TriggerType: models.TaskTriggerManual,
		TriggeredBy: userID,
		Recurrence:  models.RecurrenceNone,
	}

	if scheduleTime != "" {
		at, err := time.Parse(time.RFC3339, scheduleTime)
		if err != nil {
			return nil, errs.Validation("invalid schedule_time %q, expected RFC3339", scheduleTime)
		}
		task.ScheduledTime = &at
		task.TriggerType = models.TaskTriggerScheduled
	}

	if err := s.topics.CreateTask(task); err != nil {
		return nil, err
	}

	s.logger.Info("Hot topic task created",
		zap.String("task_id", task.TaskID),
		zap.Strings("platforms", filtered),
		zap.String("trigger_type", task.TriggerType))
	return task, nil
}

// ScheduleTask creates a scheduled, optionally recurring task.
func (s *HotTopicService) ScheduleTask(userID string, platforms []string, scheduleTime, recurrence string) (*models.HotTopicTask, error) {
	if scheduleTime == "" {
		return nil, errs.Validation("schedule_time is required")
	}
	switch recurrence {
	case "", models.RecurrenceNone, models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly:
	default:
		return nil, errs.Validation("invalid recurrence %q", recurrence)
	}
	if recurrence == "" {
		recurrence = models.RecurrenceNone
	}

	filtered := filterPlatforms(platforms)
	if len(filtered) == 0 {
		return nil, errs.Validation("no valid platforms in %v", platforms)
	}
	at, err := time.Parse(time.RFC3339, scheduleTime)
	if err != nil {
		return nil, errs.Validation("invalid schedule_time %q, expected RFC3339", scheduleTime)
	}

	task := &models.HotTopicTask{
		TaskID:        uuid.NewString(),
		Status:        models.TaskPending,
		Platforms:     filtered,
		ScheduledTime: &at,
		TriggerType:   models.TaskTriggerScheduled,
		TriggeredBy:   userID,
		Recurrence:    recurrence,
	}
	if err := s.topics.CreateTask(task); err != nil {
		return nil, err
	}

	s.logger.Info("Hot topic task scheduled",
		zap.String("task_id", task.TaskID),
		zap.Strings("platforms", filtered),
		zap.String("recurrence", recurrence),
		zap.Time("scheduled_time", at))
	return task, nil
}

// GetPendingTasks returns due pending tasks in FIFO order.
func (s *HotTopicService) GetPendingTasks(limit int) ([]models.HotTopicTask, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.topics.ListPendingTasks(limit, time.Now())
}

// ClaimTask atomically transitions a task pending -> claimed. Concurrent
// claimers observe "task not found or already claimed".
func (s *HotTopicService) ClaimTask(taskID, crawlerID string) (*models.HotTopicTask, error) {
	if taskID == "" {
		return nil, errs.Validation("task_id is required")
	}

	claimed, err := s.topics.ClaimTask(taskID, crawlerID, time.Now())
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, errs.NotFound("task not found or already claimed")
	}

	s.logger.Info("Hot topic task claimed",
		zap.String("task_id", taskID), zap.String("crawler_id", crawlerID))
	return s.topics.GetTask(taskID)
}

// ProcessTaskResult persists a platform's topics idempotently, records the
// submission log and re-runs the completion check. Duplicate topics update
// the existing row's mutable fields instead of erroring.
func (s *HotTopicService) ProcessTaskResult(taskID, platform string, input TaskResultInput) (int, error) {
	task, err := s.topics.GetTask(taskID)
	if err != nil {
		return 0, err
	}
	if !isValidPlatform(platform) {
		return 0, errs.Validation("unknown platform %q", platform)
	}

	batchID := input.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	topicDate := input.TopicDate
	if topicDate == "" {
		topicDate = time.Now().Format("2006-01-02")
	}

	written := 0
	if input.Status != "failed" && len(input.Topics) > 0 {
		now := time.Now()
		topics := make([]models.HotTopic, 0, len(input.Topics))
		// Scraped trending lists repeat entries. A repeated
		// (topic_date, platform, topic_title) inside one insert would make
		// ON CONFLICT hit the same row twice, which Postgres rejects for the
		// whole statement, so keep only the last occurrence per title.
		byTitle := make(map[string]int, len(input.Topics))
		for _, t := range input.Topics {
			if t.Title == "" {
				continue
			}
			title := util.Truncate(t.Title, 500)
			topic := models.HotTopic{
				TaskID:      taskID,
				BatchID:     batchID,
				Platform:    platform,
				TopicTitle:  title,
				TopicURL:    t.URL,
				HotValue:    t.HotValue,
				Description: t.Description,
				IsHot:       t.IsHot,
				IsNew:       t.IsNew,
				Rank:        t.Rank,
				RankChange:  t.RankChange,
				HeatLevel:   ComputeHeatLevel(t.HotValue),
				TopicDate:   topicDate,
				CrawlerID:   input.CrawlerID,
				CrawlTime:   now,
				Status:      "active",
			}
			if i, ok := byTitle[title]; ok {
				topics[i] = topic
				continue
			}
			byTitle[title] = len(topics)
			topics = append(topics, topic)
		}
		written, err = s.topics.UpsertTopics(topics)
		if err != nil {
			return 0, err
		}
	}

	logStatus := "success"
	if input.Status == "failed" {
		logStatus = "failed"
	}
	if err := s.topics.CreateLog(&models.HotTopicLog{
		TaskID:         taskID,
		BatchID:        batchID,
		Platform:       platform,
		Status:         logStatus,
		TopicsCount:    written,
		ErrorMessage:   input.ErrorMessage,
		ProcessingTime: input.ProcessingTime,
		CrawlerID:      input.CrawlerID,
	}); err != nil {
		return written, err
	}

	// Completion is a poll-style convergence: every submission re-checks
	// whether all requested platforms now have a log entry.
	if err := s.checkCompletion(task); err != nil {
		s.logger.Error("Completion check failed",
			zap.String("task_id", taskID), zap.Error(err))
	}

	return written, nil
}

func (s *HotTopicService) checkCompletion(task *models.HotTopicTask) error {
	logged, err := s.topics.LoggedPlatforms(task.TaskID)
	if err != nil {
		return err
	}

	covered := make(map[string]bool, len(logged))
	for _, p := range logged {
		covered[p] = true
	}
	for _, p := range task.Platforms {
		if !covered[p] {
			return nil
		}
	}

	if err := s.topics.CompleteTask(task.TaskID, time.Now()); err != nil {
		return err
	}
	s.logger.Info("Hot topic task completed", zap.String("task_id", task.TaskID))

	return s.scheduleNextOccurrence(task)
}

// scheduleNextOccurrence creates the follow-up task for recurring schedules.
func (s *HotTopicService) scheduleNextOccurrence(task *models.HotTopicTask) error {
	if task.Recurrence == "" || task.Recurrence == models.RecurrenceNone {
		return nil
	}

	base := time.Now()
	if task.ScheduledTime != nil {
		base = *task.ScheduledTime
	}

	var next time.Time
	switch task.Recurrence {
	case models.RecurrenceDaily:
		next = base.AddDate(0, 0, 1)
	case models.RecurrenceWeekly:
		next = base.AddDate(0, 0, 7)
	case models.RecurrenceMonthly:
		next = base.AddDate(0, 1, 0)
	default:
		return nil
	}
	for !next.After(time.Now()) {
		switch task.Recurrence {
		case models.RecurrenceDaily:
			next = next.AddDate(0, 0, 1)
		case models.RecurrenceWeekly:
			next = next.AddDate(0, 0, 7)
		case models.RecurrenceMonthly:
			next = next.AddDate(0, 1, 0)
		}
	}

	successor := &models.HotTopicTask{
		TaskID:        uuid.NewString(),
		Status:        models.TaskPending,
		Platforms:     task.Platforms,
		ScheduledTime: &next,
		TriggerType:   models.TaskTriggerScheduled,
		TriggeredBy:   task.TriggeredBy,
		Recurrence:    task.Recurrence,
	}
	if err := s.topics.CreateTask(successor); err != nil {
		return err
	}

	s.logger.Info("Recurring task scheduled",
		zap.String("task_id", successor.TaskID),
		zap.String("recurrence", task.Recurrence),
		zap.Time("scheduled_time", next))
	return nil
}

// GetHotTopicStats reports the latest snapshot per platform. Deliberately an
// O(platforms) fan-out of latest queries; fine at this data scale.
func (s *HotTopicService) GetHotTopicStats() ([]PlatformStat, error) {
	stats := make([]PlatformStat, 0, len(hotTopicPlatforms))
	for _, platform := range hotTopicPlatforms {
		count, latest, err := s.topics.LatestSnapshot(platform)
		if err != nil {
			return nil, err
		}
		stats = append(stats, PlatformStat{
			Platform:    platform,
			TopicsCount: count,
			LatestCrawl: latest,
		})
	}
	return stats, nil
}

// ComputeHeatLevel buckets a raw hotness metric into 1..5 using only its
// decimal digits, so "1,200,000" and "约120万" style values still parse.
func ComputeHeatLevel(hotValue string) int {
	digits := util.ExtractDigits(strings.TrimSpace(hotValue))
	if digits == "" {
		return 1
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 1
	}

	switch {
	case n > 1_000_000:
		return 5
	case n > 500_000:
		return 4
	case n > 100_000:
		return 3
	case n > 10_000:
		return 2
	default:
		return 1
	}
}

func filterPlatforms(platforms []string) models.StringArray {
	filtered := make(models.StringArray, 0, len(platforms))
	seen := make(map[string]bool)
	for _, p := range platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if isValidPlatform(p) && !seen[p] {
			filtered = append(filtered, p)
			seen[p] = true
		}
	}
	return filtered
}

func isValidPlatform(platform string) bool {
	for _, p := range hotTopicPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}
