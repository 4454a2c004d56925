package server

import (
	"github.com/gin-gonic/gin"

	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

type createTaskRequest struct {
	Platforms    []string `json:"platforms"`
	ScheduleTime string   `json:"schedule_time"`
	Recurrence   string   `json:"recurrence"`
}

func (s *Server) handleCreateHotTopicTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errs.Validation("invalid request body"))
		return
	}

	task, err := s.HotTopics.CreateTask(currentUserID(c), req.Platforms, req.ScheduleTime)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, task)
}

func (s *Server) handleScheduleHotTopicTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errs.Validation("invalid request body"))
		return
	}

	task, err := s.HotTopics.ScheduleTask(currentUserID(c), req.Platforms, req.ScheduleTime, req.Recurrence)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, task)
}

func (s *Server) handleHotTopicStats(c *gin.Context) {
	stats, err := s.HotTopics.GetHotTopicStats()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}
