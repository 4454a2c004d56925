package models

import (
	"time"

	"gorm.io/gorm"
)

// Feed fetch statuses
const (
	FeedFetchUnfetched = "unfetched"
	FeedFetchSuccess   = "success"
	FeedFetchFailed    = "failed"
)

// Article statuses
const (
	ArticlePendingContent = "pending_content"
	ArticleReady          = "ready"
)

type Feed struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	URL                   string         `gorm:"not null;size:1024" json:"url"`
	Title                 string         `gorm:"size:500" json:"title"`
	Description           string         `gorm:"type:text" json:"description"`
	IsActive              bool           `gorm:"default:true;index" json:"is_active"`
	UseProxy              bool           `gorm:"default:false" json:"use_proxy"`
	LastFetchAt           *time.Time     `json:"last_fetch_at"`
	LastFetchStatus       string         `gorm:"size:50;default:'unfetched'" json:"last_fetch_status"`
	LastFetchError        string         `gorm:"type:text" json:"last_fetch_error"`
	LastSuccessfulFetchAt *time.Time     `json:"last_successful_fetch_at"`
	ConsecutiveFailures   int            `gorm:"default:0" json:"consecutive_failures"`
	TotalArticlesCount    int            `gorm:"default:0" json:"total_articles_count"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

type Article struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	FeedID        uint       `gorm:"not null;index:idx_feed_link" json:"feed_id"`
	Link          string     `gorm:"not null;size:1024;index:idx_feed_link" json:"link"`
	Title         string     `gorm:"size:500" json:"title"`
	Summary       string     `gorm:"type:text" json:"summary"`
	ThumbnailURL  string     `gorm:"size:1024" json:"thumbnail_url"`
	PublishedDate *time.Time `json:"published_date"`
	Status        string     `gorm:"size:50;default:'pending_content';index" json:"status"`
	IsLocked      bool       `gorm:"default:false" json:"is_locked"`
	LockTimestamp *time.Time `json:"lock_timestamp"`
	CrawlerID     string     `gorm:"size:100" json:"crawler_id"`
	RetryCount    int        `gorm:"default:0" json:"retry_count"`
	MaxRetries    int        `gorm:"default:3" json:"max_retries"`
	ErrorMessage  string     `gorm:"type:text" json:"error_message"`
	ContentID     *uint      `json:"content_id"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Feed    Feed            `gorm:"foreignKey:FeedID" json:"feed"`
	Content *ArticleContent `gorm:"foreignKey:ContentID" json:"content,omitempty"`
}

type ArticleContent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	HTMLContent string    `gorm:"type:text" json:"html_content"`
	TextContent string    `gorm:"type:text" json:"text_content"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
