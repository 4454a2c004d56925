package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

type hotTopicRepository struct {
	db *gorm.DB
}

func NewHotTopicRepository(db *gorm.DB) HotTopicRepository {
	return &hotTopicRepository{db: db}
}

func (r *hotTopicRepository) CreateTask(task *models.HotTopicTask) error {
	if err := r.db.Create(task).Error; err != nil {
		return errs.Persistence("failed to create hot topic task", err)
	}
	return nil
}

func (r *hotTopicRepository) GetTask(taskID string) (*models.HotTopicTask, error) {
	var task models.HotTopicTask
	if err := r.db.Where("task_id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("task %s not found", taskID)
		}
		return nil, errs.Persistence("failed to query hot topic task", err)
	}
	return &task, nil
}

func (r *hotTopicRepository) ListPendingTasks(limit int, now time.Time) ([]models.HotTopicTask, error) {
	var tasks []models.HotTopicTask
	err := r.db.
		Where("status = ?", models.TaskPending).
		Where("scheduled_time IS NULL OR scheduled_time <= ?", now).
		Order("created_at asc").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, errs.Persistence("failed to list pending tasks", err)
	}
	return tasks, nil
}

func (r *hotTopicRepository) ClaimTask(taskID, crawlerID string, now time.Time) (bool, error) {
	// Compare-and-swap on the status column. Concurrent claimers race for
	// the same row; only the one whose UPDATE matches status=pending wins.
	result := r.db.Model(&models.HotTopicTask{}).
		Where("task_id = ? AND status = ?", taskID, models.TaskPending).
		Updates(map[string]interface{}{
			"status":     models.TaskClaimed,
			"crawler_id": crawlerID,
			"claimed_at": now,
		})
	if result.Error != nil {
		return false, errs.Persistence(fmt.Sprintf("failed to claim task %s", taskID), result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *hotTopicRepository) CompleteTask(taskID string, now time.Time) error {
	err := r.db.Model(&models.HotTopicTask{}).
		Where("task_id = ? AND status <> ?", taskID, models.TaskCompleted).
		Updates(map[string]interface{}{
			"status":       models.TaskCompleted,
			"completed_at": now,
		}).Error
	if err != nil {
		return errs.Persistence(fmt.Sprintf("failed to complete task %s", taskID), err)
	}
	return nil
}

func (r *hotTopicRepository) FailTimedOutTasks(claimedBefore time.Time) (int64, error) {
	result := r.db.Model(&models.HotTopicTask{}).
		Where("status = ? AND claimed_at < ?", models.TaskClaimed, claimedBefore).
		Update("status", models.TaskFailed)
	if result.Error != nil {
		return 0, errs.Persistence("failed to expire claimed tasks", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *hotTopicRepository) UpsertTopics(topics []models.HotTopic) (int, error) {
	if len(topics) == 0 {
		return 0, nil
	}

	// Duplicate (topic_date, platform, topic_title) rows fall back to an
	// update of the mutable ranking fields instead of erroring, so a
	// partially duplicated batch never aborts.
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "topic_date"}, {Name: "platform"}, {Name: "topic_title"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rank", "rank_change", "hot_value", "heat_level", "is_hot", "is_new",
			"topic_url", "description", "task_id", "batch_id", "crawler_id",
			"crawl_time", "updated_at",
		}),
	}).Create(&topics).Error
	if err != nil {
		return 0, errs.Persistence("failed to upsert hot topics", err)
	}
	return len(topics), nil
}

func (r *hotTopicRepository) CreateLog(log *models.HotTopicLog) error {
	if err := r.db.Create(log).Error; err != nil {
		return errs.Persistence("failed to create hot topic log", err)
	}
	return nil
}

func (r *hotTopicRepository) LoggedPlatforms(taskID string) ([]string, error) {
	var platforms []string
	err := r.db.Model(&models.HotTopicLog{}).
		Where("task_id = ?", taskID).
		Distinct().
		Pluck("platform", &platforms).Error
	if err != nil {
		return nil, errs.Persistence("failed to query logged platforms", err)
	}
	return platforms, nil
}

func (r *hotTopicRepository) LatestSnapshot(platform string) (int64, *time.Time, error) {
	var latest models.HotTopic
	err := r.db.Where("platform = ?", platform).Order("crawl_time desc").First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, nil
		}
		return 0, nil, errs.Persistence("failed to query latest topic", err)
	}

	var count int64
	err = r.db.Model(&models.HotTopic{}).
		Where("platform = ? AND batch_id = ?", platform, latest.BatchID).
		Count(&count).Error
	if err != nil {
		return 0, nil, errs.Persistence("failed to count latest snapshot", err)
	}
	return count, &latest.CrawlTime, nil
}
