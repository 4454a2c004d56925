package server

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/funny-ai-box/paraluxflow/internal/service"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

func (s *Server) handleRegisterAgent(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errs.Validation("invalid request body"))
		return
	}
	if req.IPAddress == "" {
		req.IPAddress = c.ClientIP()
	}

	agent, err := s.Agents.Register(req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, agent)
}

type heartbeatRequest struct {
	AgentID string `json:"agent_id"`
	service.HeartbeatInput
}

func (s *Server) handleHeartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AgentID == "" {
		respondError(c, errs.Validation("agent_id is required"))
		return
	}

	agent, err := s.Agents.Heartbeat(req.AgentID, req.HeartbeatInput)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, agent)
}

func (s *Server) handleListAgents(c *gin.Context) {
	agents, err := s.Agents.GetAgents(c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, agents)
}

func (s *Server) handlePendingArticles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	articles, err := s.ArticleCrawl.GetPendingArticles(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, articles)
}

type claimArticleRequest struct {
	ArticleID uint   `json:"article_id"`
	CrawlerID string `json:"crawler_id"`
}

func (s *Server) handleClaimArticle(c *gin.Context) {
	var req claimArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ArticleID == 0 {
		respondError(c, errs.Validation("article_id is required"))
		return
	}

	article, err := s.ArticleCrawl.ClaimArticle(req.ArticleID, req.CrawlerID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, article)
}

type submitArticleRequest struct {
	ArticleID    uint   `json:"article_id"`
	CrawlerID    string `json:"crawler_id"`
	Status       string `json:"status"`
	HTMLContent  string `json:"html_content"`
	TextContent  string `json:"text_content"`
	ErrorMessage string `json:"error_message"`
}

func (s *Server) handleSubmitArticle(c *gin.Context) {
	var req submitArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ArticleID == 0 {
		respondError(c, errs.Validation("article_id is required"))
		return
	}

	if req.Status == "failed" {
		if err := s.ArticleCrawl.ReportArticleFailure(req.ArticleID, req.CrawlerID, req.ErrorMessage); err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{"message": "failure recorded"})
		return
	}

	if err := s.ArticleCrawl.SubmitArticleContent(req.ArticleID, req.CrawlerID, req.HTMLContent, req.TextContent); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "content stored"})
}

func (s *Server) handlePendingHotTopics(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	tasks, err := s.HotTopics.GetPendingTasks(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tasks)
}

type claimTaskRequest struct {
	TaskID    string `json:"task_id"`
	CrawlerID string `json:"crawler_id"`
}

func (s *Server) handleClaimHotTopicsTask(c *gin.Context) {
	var req claimTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errs.Validation("invalid request body"))
		return
	}

	task, err := s.HotTopics.ClaimTask(req.TaskID, req.CrawlerID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, task)
}

type submitHotTopicsRequest struct {
	TaskID   string `json:"task_id"`
	Platform string `json:"platform"`
	service.TaskResultInput
}

func (s *Server) handleSubmitHotTopicsResult(c *gin.Context) {
	var req submitHotTopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TaskID == "" || req.Platform == "" {
		respondError(c, errs.Validation("task_id and platform are required"))
		return
	}

	written, err := s.HotTopics.ProcessTaskResult(req.TaskID, req.Platform, req.TaskResultInput)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"topics_written": written})
}
