package models

import (
	"time"
)

// Hot-topic task statuses
const (
	TaskPending   = "pending"
	TaskClaimed   = "claimed"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

// Task triggers
const (
	TaskTriggerManual    = "manual"
	TaskTriggerScheduled = "scheduled"
)

// Task recurrence options
const (
	RecurrenceNone    = "none"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

type HotTopicTask struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	TaskID        string      `gorm:"uniqueIndex;not null;size:36" json:"task_id"`
	Status        string      `gorm:"size:50;default:'pending';index" json:"status"`
	Platforms     StringArray `gorm:"type:text[]" json:"platforms"`
	ScheduledTime *time.Time  `gorm:"index" json:"scheduled_time"`
	CrawlerID     string      `gorm:"size:100" json:"crawler_id"`
	TriggerType   string      `gorm:"size:50;default:'manual'" json:"trigger_type"`
	TriggeredBy   string      `gorm:"size:100" json:"triggered_by"`
	Recurrence    string      `gorm:"size:50;default:'none'" json:"recurrence"`
	ClaimedAt     *time.Time  `json:"claimed_at"`
	CompletedAt   *time.Time  `json:"completed_at"`
	CreatedAt     time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type HotTopic struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TaskID      string    `gorm:"size:36;index" json:"task_id"`
	BatchID     string    `gorm:"size:36;index" json:"batch_id"`
	Platform    string    `gorm:"size:50;not null;uniqueIndex:idx_topic_natural" json:"platform"`
	TopicTitle  string    `gorm:"size:500;not null;uniqueIndex:idx_topic_natural" json:"topic_title"`
	TopicURL    string    `gorm:"size:1024" json:"topic_url"`
	HotValue    string    `gorm:"size:50" json:"hot_value"`
	Description string    `gorm:"type:text" json:"description"`
	IsHot       bool      `gorm:"default:false" json:"is_hot"`
	IsNew       bool      `gorm:"default:false" json:"is_new"`
	Rank        int       `gorm:"default:0" json:"rank"`
	RankChange  int       `gorm:"default:0" json:"rank_change"`
	HeatLevel   int       `gorm:"default:1" json:"heat_level"`
	TopicDate   string    `gorm:"size:10;not null;uniqueIndex:idx_topic_natural" json:"topic_date"`
	CrawlerID   string    `gorm:"size:100" json:"crawler_id"`
	CrawlTime   time.Time `json:"crawl_time"`
	Status      string    `gorm:"size:50;default:'active'" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HotTopicLog records one submission attempt per (task, platform). Task
// completion is detected by counting distinct logged platforms.
type HotTopicLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TaskID         string    `gorm:"size:36;not null;index" json:"task_id"`
	BatchID        string    `gorm:"size:36" json:"batch_id"`
	Platform       string    `gorm:"size:50;not null;index" json:"platform"`
	Status         string    `gorm:"size:50" json:"status"`
	TopicsCount    int       `gorm:"default:0" json:"topics_count"`
	ErrorMessage   string    `gorm:"type:text" json:"error_message"`
	ProcessingTime float64   `gorm:"default:0" json:"processing_time"`
	CrawlerID      string    `gorm:"size:100" json:"crawler_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
