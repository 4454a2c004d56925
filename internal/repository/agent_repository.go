package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

type agentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) Upsert(agent *models.CrawlerAgent) (*models.CrawlerAgent, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "agent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"hostname", "ip_address", "version", "capabilities",
			"status", "last_heartbeat", "updated_at",
		}),
	}).Create(agent).Error
	if err != nil {
		return nil, errs.Persistence("failed to upsert crawler agent", err)
	}
	return r.GetByAgentID(agent.AgentID)
}

func (r *agentRepository) GetByAgentID(agentID string) (*models.CrawlerAgent, error) {
	var agent models.CrawlerAgent
	if err := r.db.Where("agent_id = ?", agentID).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("agent %s not registered", agentID)
		}
		return nil, errs.Persistence("failed to query crawler agent", err)
	}
	return &agent, nil
}

func (r *agentRepository) Update(agent *models.CrawlerAgent) error {
	if err := r.db.Save(agent).Error; err != nil {
		return errs.Persistence("failed to update crawler agent", err)
	}
	return nil
}

func (r *agentRepository) List(statusFilter string) ([]models.CrawlerAgent, error) {
	query := r.db.Order("last_heartbeat desc")
	if statusFilter != "" {
		query = query.Where("status = ?", statusFilter)
	}

	var agents []models.CrawlerAgent
	if err := query.Find(&agents).Error; err != nil {
		return nil, errs.Persistence("failed to list crawler agents", err)
	}
	return agents, nil
}
