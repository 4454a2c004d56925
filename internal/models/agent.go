package models

import (
	"time"
)

// Crawler agent statuses
const (
	AgentActive  = "active"
	AgentIdle    = "idle"
	AgentOffline = "offline"
)

type CrawlerAgent struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	AgentID           string      `gorm:"uniqueIndex;not null;size:255" json:"agent_id"`
	Hostname          string      `gorm:"size:255" json:"hostname"`
	IPAddress         string      `gorm:"size:64" json:"ip_address"`
	Version           string      `gorm:"size:50" json:"version"`
	Capabilities      StringArray `gorm:"type:text[]" json:"capabilities"`
	Status            string      `gorm:"size:50;default:'active';index" json:"status"`
	LastHeartbeat     time.Time   `gorm:"index" json:"last_heartbeat"`
	TotalTasks        int         `gorm:"default:0" json:"total_tasks"`
	SuccessTasks      int         `gorm:"default:0" json:"success_tasks"`
	FailedTasks       int         `gorm:"default:0" json:"failed_tasks"`
	AvgProcessingTime float64     `gorm:"default:0" json:"avg_processing_time"`
	CreatedAt         time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}
