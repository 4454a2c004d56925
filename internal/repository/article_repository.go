package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

type articleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) InsertNew(articles []models.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	feedID := articles[0].FeedID
	links := make([]string, 0, len(articles))
	for _, a := range articles {
		links = append(links, a.Link)
	}

	var existing []string
	if err := r.db.Model(&models.Article{}).
		Where("feed_id = ? AND link IN ?", feedID, links).
		Pluck("link", &existing).Error; err != nil {
		return 0, errs.Persistence("failed to check existing articles", err)
	}

	seen := make(map[string]bool, len(existing))
	for _, link := range existing {
		seen[link] = true
	}

	// Also dedupe within the batch itself; feeds occasionally repeat entries.
	fresh := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if seen[a.Link] {
			continue
		}
		seen[a.Link] = true
		fresh = append(fresh, a)
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	if err := r.db.Create(&fresh).Error; err != nil {
		return 0, errs.Persistence("failed to insert articles", err)
	}
	return len(fresh), nil
}

func (r *articleRepository) GetArticle(id uint) (*models.Article, error) {
	var article models.Article
	if err := r.db.Preload("Content").First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("article %d not found", id)
		}
		return nil, errs.Persistence("failed to query article", err)
	}
	return &article, nil
}

func (r *articleRepository) ListPending(limit int, staleBefore time.Time) ([]models.Article, error) {
	var articles []models.Article
	err := r.db.
		Where("status = ? AND retry_count < max_retries", models.ArticlePendingContent).
		Where("is_locked = ? OR lock_timestamp < ?", false, staleBefore).
		Order("created_at asc").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, errs.Persistence("failed to list pending articles", err)
	}
	return articles, nil
}

func (r *articleRepository) Claim(articleID uint, crawlerID string, staleBefore, now time.Time) (bool, error) {
	// Conditional update: only an unlocked article, or one whose lock has
	// gone stale, can be taken. A crashed worker never blocks it forever.
	result := r.db.Model(&models.Article{}).
		Where("id = ? AND status = ?", articleID, models.ArticlePendingContent).
		Where("is_locked = ? OR lock_timestamp < ?", false, staleBefore).
		Updates(map[string]interface{}{
			"is_locked":      true,
			"lock_timestamp": now,
			"crawler_id":     crawlerID,
		})
	if result.Error != nil {
		return false, errs.Persistence(fmt.Sprintf("failed to claim article %d", articleID), result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *articleRepository) SaveContent(articleID uint, crawlerID string, content *models.ArticleContent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(content).Error; err != nil {
			return errs.Persistence("failed to store article content", err)
		}

		result := tx.Model(&models.Article{}).
			Where("id = ? AND crawler_id = ?", articleID, crawlerID).
			Updates(map[string]interface{}{
				"status":         models.ArticleReady,
				"content_id":     content.ID,
				"is_locked":      false,
				"lock_timestamp": nil,
				"error_message":  "",
			})
		if result.Error != nil {
			return errs.Persistence(fmt.Sprintf("failed to finish article %d", articleID), result.Error)
		}
		if result.RowsAffected == 0 {
			return errs.NotFound("article %d not claimed by crawler %s", articleID, crawlerID)
		}
		return nil
	})
}

func (r *articleRepository) MarkFailure(articleID uint, crawlerID, errMsg string) error {
	result := r.db.Model(&models.Article{}).
		Where("id = ? AND crawler_id = ?", articleID, crawlerID).
		Updates(map[string]interface{}{
			"is_locked":      false,
			"lock_timestamp": nil,
			"retry_count":    gorm.Expr("retry_count + 1"),
			"error_message":  errMsg,
		})
	if result.Error != nil {
		return errs.Persistence(fmt.Sprintf("failed to record article %d failure", articleID), result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("article %d not claimed by crawler %s", articleID, crawlerID)
	}
	return nil
}
