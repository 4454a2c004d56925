package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

type syncLogRepository struct {
	db *gorm.DB
}

func NewSyncLogRepository(db *gorm.DB) SyncLogRepository {
	return &syncLogRepository{db: db}
}

func (r *syncLogRepository) Create(log *models.SyncLog) error {
	if err := r.db.Create(log).Error; err != nil {
		return errs.Persistence("failed to create sync log", err)
	}
	return nil
}

func (r *syncLogRepository) Finalize(log *models.SyncLog) error {
	err := r.db.Model(&models.SyncLog{}).Where("sync_id = ?", log.SyncID).Updates(map[string]interface{}{
		"total_feeds":        log.TotalFeeds,
		"synced_feeds":       log.SyncedFeeds,
		"failed_feeds":       log.FailedFeeds,
		"total_articles":     log.TotalArticles,
		"status":             log.Status,
		"end_time":           log.EndTime,
		"total_time_seconds": log.TotalTimeSeconds,
		"details":            log.Details,
	}).Error
	if err != nil {
		return errs.Persistence("failed to finalize sync log", err)
	}
	return nil
}

func (r *syncLogRepository) GetBySyncID(syncID string) (*models.SyncLog, error) {
	var log models.SyncLog
	if err := r.db.Where("sync_id = ?", syncID).First(&log).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("sync log %s not found", syncID)
		}
		return nil, errs.Persistence("failed to query sync log", err)
	}
	return &log, nil
}

func (r *syncLogRepository) List(limit, offset int) ([]models.SyncLog, int64, error) {
	var total int64
	if err := r.db.Model(&models.SyncLog{}).Count(&total).Error; err != nil {
		return nil, 0, errs.Persistence("failed to count sync logs", err)
	}

	var logs []models.SyncLog
	err := r.db.Order("start_time desc").Limit(limit).Offset(offset).Find(&logs).Error
	if err != nil {
		return nil, 0, errs.Persistence("failed to list sync logs", err)
	}
	return logs, total, nil
}
