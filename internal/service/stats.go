package service

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

// SyncLogStats summarizes sync-run history for the dashboard.
type SyncLogStats struct {
	TotalRuns       int64      `json:"total_runs"`
	SuccessfulRuns  int64      `json:"successful_runs"`
	FailedRuns      int64      `json:"failed_runs"`
	InProgressRuns  int64      `json:"in_progress_runs"`
	TotalArticles   int64      `json:"total_articles"`
	AvgRunSeconds   float64    `json:"avg_run_seconds"`
	LastRunAt       *time.Time `json:"last_run_at"`
	LastRunStatus   string     `json:"last_run_status"`
	ActiveFeeds     int64      `json:"active_feeds"`
	TotalFeeds      int64      `json:"total_feeds"`
	PendingArticles int64      `json:"pending_articles"`
	ReadyArticles   int64      `json:"ready_articles"`
}

// StatsService computes dashboard aggregates straight from the database.
type StatsService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStatsService(db *gorm.DB, logger *zap.Logger) *StatsService {
	return &StatsService{db: db, logger: logger}
}

func (s *StatsService) SyncLogStats() (*SyncLogStats, error) {
	stats := &SyncLogStats{}

	runCounts := []struct {
		dst    *int64
		status string
	}{
		{&stats.TotalRuns, ""},
		{&stats.SuccessfulRuns, models.SyncSuccess},
		{&stats.FailedRuns, models.SyncFailed},
		{&stats.InProgressRuns, models.SyncInProgress},
	}
	for _, c := range runCounts {
		query := s.db.Model(&models.SyncLog{})
		if c.status != "" {
			query = query.Where("status = ?", c.status)
		}
		if err := query.Count(c.dst).Error; err != nil {
			return nil, errs.Persistence("failed to count sync runs", err)
		}
	}

	var totals struct {
		TotalArticles int64
		AvgSeconds    float64
	}
	err := s.db.Model(&models.SyncLog{}).
		Select("COALESCE(SUM(total_articles), 0) AS total_articles, COALESCE(AVG(NULLIF(total_time_seconds, 0)), 0) AS avg_seconds").
		Scan(&totals).Error
	if err != nil {
		return nil, errs.Persistence("failed to aggregate sync runs", err)
	}
	stats.TotalArticles = totals.TotalArticles
	stats.AvgRunSeconds = totals.AvgSeconds

	var lastRun models.SyncLog
	switch err := s.db.Order("start_time desc").First(&lastRun).Error; {
	case err == nil:
		stats.LastRunAt = &lastRun.StartTime
		stats.LastRunStatus = lastRun.Status
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errs.Persistence("failed to query last sync run", err)
	}

	if err := s.db.Model(&models.Feed{}).Count(&stats.TotalFeeds).Error; err != nil {
		return nil, errs.Persistence("failed to count feeds", err)
	}
	if err := s.db.Model(&models.Feed{}).Where("is_active = ?", true).Count(&stats.ActiveFeeds).Error; err != nil {
		return nil, errs.Persistence("failed to count feeds", err)
	}
	if err := s.db.Model(&models.Article{}).Where("status = ?", models.ArticlePendingContent).Count(&stats.PendingArticles).Error; err != nil {
		return nil, errs.Persistence("failed to count articles", err)
	}
	if err := s.db.Model(&models.Article{}).Where("status = ?", models.ArticleReady).Count(&stats.ReadyArticles).Error; err != nil {
		return nil, errs.Persistence("failed to count articles", err)
	}

	return stats, nil
}
