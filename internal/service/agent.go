package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/internal/repository"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

// RegisterInput is the self-description a crawler worker sends on startup.
type RegisterInput struct {
	AgentID      string   `json:"agent_id"`
	Hostname     string   `json:"hostname"`
	IPAddress    string   `json:"ip_address"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

// AgentPerformance is the worker's self-reported counters. Trusted verbatim,
// not independently verified.
type AgentPerformance struct {
	TotalTasks        int     `json:"total_tasks"`
	SuccessTasks      int     `json:"success_tasks"`
	FailedTasks       int     `json:"failed_tasks"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
}

// HeartbeatInput is a periodic liveness report from a registered worker.
type HeartbeatInput struct {
	Status      string            `json:"status"`
	Performance *AgentPerformance `json:"performance"`
}

// AgentService tracks remote crawler worker instances.
type AgentService struct {
	agents repository.AgentRepository
	logger *zap.Logger
}

func NewAgentService(agents repository.AgentRepository, logger *zap.Logger) *AgentService {
	return &AgentService{agents: agents, logger: logger}
}

// Register upserts an agent keyed by agent_id; re-registration refreshes the
// heartbeat and merges new capability/version fields, never duplicating.
func (s *AgentService) Register(input RegisterInput) (*models.CrawlerAgent, error) {
	agentID := input.AgentID
	if agentID == "" {
		agentID = input.Hostname
	}
	if agentID == "" {
		return nil, errs.Validation("agent_id or hostname is required")
	}

	agent := &models.CrawlerAgent{
		AgentID:       agentID,
		Hostname:      input.Hostname,
		IPAddress:     input.IPAddress,
		Version:       input.Version,
		Capabilities:  input.Capabilities,
		Status:        models.AgentActive,
		LastHeartbeat: time.Now(),
	}

	registered, err := s.agents.Upsert(agent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Crawler agent registered",
		zap.String("agent_id", registered.AgentID),
		zap.String("hostname", registered.Hostname),
		zap.String("version", registered.Version))
	return registered, nil
}

// Heartbeat refreshes liveness for a registered agent; unknown agents are a
// NotFound error, not an implicit registration.
func (s *AgentService) Heartbeat(agentID string, input HeartbeatInput) (*models.CrawlerAgent, error) {
	agent, err := s.agents.GetByAgentID(agentID)
	if err != nil {
		return nil, err
	}

	agent.LastHeartbeat = time.Now()
	agent.Status = models.AgentActive
	if input.Status != "" {
		agent.Status = input.Status
	}

	if p := input.Performance; p != nil {
		agent.TotalTasks = p.TotalTasks
		agent.SuccessTasks = p.SuccessTasks
		agent.FailedTasks = p.FailedTasks
		agent.AvgProcessingTime = p.AvgProcessingTime
	}

	if err := s.agents.Update(agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *AgentService) UpdateStatus(agentID, status string) (*models.CrawlerAgent, error) {
	agent, err := s.agents.GetByAgentID(agentID)
	if err != nil {
		return nil, err
	}
	agent.Status = status
	if err := s.agents.Update(agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *AgentService) GetAgent(agentID string) (*models.CrawlerAgent, error) {
	return s.agents.GetByAgentID(agentID)
}

func (s *AgentService) GetAgents(statusFilter string) ([]models.CrawlerAgent, error) {
	return s.agents.List(statusFilter)
}
