package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

type feedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) GetFeed(id uint) (*models.Feed, error) {
	var feed models.Feed
	if err := r.db.First(&feed, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("feed %d not found", id)
		}
		return nil, errs.Persistence("failed to query feed", err)
	}
	return &feed, nil
}

func (r *feedRepository) ListActiveFeeds() ([]models.Feed, error) {
	var feeds []models.Feed
	if err := r.db.Where("is_active = ?", true).Find(&feeds).Error; err != nil {
		return nil, errs.Persistence("failed to list active feeds", err)
	}
	return feeds, nil
}

func (r *feedRepository) MarkFetchSuccess(id uint, articleCount int) error {
	now := time.Now()
	updates := map[string]interface{}{
		"last_fetch_status":        models.FeedFetchSuccess,
		"last_fetch_error":         "",
		"last_fetch_at":            now,
		"last_successful_fetch_at": now,
		"consecutive_failures":     0,
	}
	if articleCount > 0 {
		updates["total_articles_count"] = gorm.Expr("total_articles_count + ?", articleCount)
	}
	if err := r.db.Model(&models.Feed{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return errs.Persistence(fmt.Sprintf("failed to mark feed %d fetched", id), err)
	}
	return nil
}

func (r *feedRepository) MarkFetchFailure(id uint, errMsg string) error {
	err := r.db.Model(&models.Feed{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_fetch_status":    models.FeedFetchFailed,
		"last_fetch_error":     errMsg,
		"last_fetch_at":        time.Now(),
		"consecutive_failures": gorm.Expr("consecutive_failures + 1"),
	}).Error
	if err != nil {
		return errs.Persistence(fmt.Sprintf("failed to mark feed %d failed", id), err)
	}
	return nil
}
