package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

type syncAllRequest struct {
	TriggeredBy string `json:"triggered_by"`
}

// handleSyncAll acknowledges immediately; the run itself happens on the
// background worker and is observed by polling the sync log.
func (s *Server) handleSyncAll(c *gin.Context) {
	var req syncAllRequest
	_ = c.ShouldBindJSON(&req)
	if req.TriggeredBy == "" {
		req.TriggeredBy = models.TriggerManual
	}

	log, err := s.Orchestrator.EnqueueSyncAll(req.TriggeredBy)
	if err != nil {
		s.Logger.Error("Failed to enqueue sync", zap.Error(err))
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"sync_id":      log.SyncID,
		"triggered_by": log.TriggeredBy,
		"start_time":   log.StartTime,
		"message":      "sync started",
	})
}

type syncFeedRequest struct {
	FeedID uint `json:"feed_id"`
}

func (s *Server) handleSyncFeed(c *gin.Context) {
	var req syncFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FeedID == 0 {
		respondError(c, errs.Validation("feed_id is required"))
		return
	}

	log, err := s.Orchestrator.SyncFeeds(c.Request.Context(), []uint{req.FeedID}, models.TriggerManual)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, log)
}

type batchSyncRequest struct {
	FeedIDs []uint `json:"feed_ids"`
}

func (s *Server) handleBatchSync(c *gin.Context) {
	var req batchSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.FeedIDs) == 0 {
		respondError(c, errs.Validation("feed_ids is required"))
		return
	}

	log, err := s.Orchestrator.SyncFeeds(c.Request.Context(), req.FeedIDs, models.TriggerManual)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, log)
}

func (s *Server) handleListSyncLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	logs, total, err := s.SyncLogs.List(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"list": logs, "total": total})
}

func (s *Server) handleSyncLogDetail(c *gin.Context) {
	syncID := c.Query("sync_id")
	if syncID == "" {
		respondError(c, errs.Validation("sync_id is required"))
		return
	}

	log, err := s.SyncLogs.GetBySyncID(syncID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, log)
}

func (s *Server) handleSyncLogStats(c *gin.Context) {
	stats, err := s.Stats.SyncLogStats()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}
