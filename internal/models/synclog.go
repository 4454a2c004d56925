package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Sync run statuses
const (
	SyncInProgress = "in_progress"
	SyncSuccess    = "success"
	SyncFailed     = "failed"
)

// Sync triggers
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// FeedSyncDetail is the per-feed outcome recorded inside a sync run.
type FeedSyncDetail struct {
	FeedID        uint    `json:"feed_id"`
	FeedTitle     string  `json:"feed_title"`
	Status        string  `json:"status"`
	ArticlesCount int     `json:"articles_count"`
	Error         string  `json:"error,omitempty"`
	SyncTime      float64 `json:"sync_time"`
}

// SyncDetailList stores per-feed details as a jsonb column.
type SyncDetailList []FeedSyncDetail

// Scan implements the sql.Scanner interface
func (d *SyncDetailList) Scan(value interface{}) error {
	if value == nil {
		*d = SyncDetailList{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("cannot scan %T into SyncDetailList", value)
	}
}

// Value implements the driver.Valuer interface
func (d SyncDetailList) Value() (driver.Value, error) {
	if d == nil {
		d = SyncDetailList{}
	}
	return json.Marshal(d)
}

type SyncLog struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	SyncID           string         `gorm:"uniqueIndex;not null;size:36" json:"sync_id"`
	TotalFeeds       int            `gorm:"default:0" json:"total_feeds"`
	SyncedFeeds      int            `gorm:"default:0" json:"synced_feeds"`
	FailedFeeds      int            `gorm:"default:0" json:"failed_feeds"`
	TotalArticles    int            `gorm:"default:0" json:"total_articles"`
	Status           string         `gorm:"size:50;default:'in_progress';index" json:"status"`
	StartTime        time.Time      `gorm:"not null" json:"start_time"`
	EndTime          *time.Time     `json:"end_time"`
	TotalTimeSeconds float64        `gorm:"default:0" json:"total_time_seconds"`
	TriggeredBy      string         `gorm:"size:50;default:'manual'" json:"triggered_by"`
	Details          SyncDetailList `gorm:"type:jsonb" json:"details"`
	CreatedAt        time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
