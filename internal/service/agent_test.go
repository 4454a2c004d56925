package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

func TestRegisterAgent(t *testing.T) {
	repo := newFakeAgentRepo()
	svc := NewAgentService(repo, zap.NewNop())

	agent, err := svc.Register(RegisterInput{
		AgentID:      "crawler-1",
		Hostname:     "worker-host",
		IPAddress:    "10.0.0.5",
		Version:      "1.2.0",
		Capabilities: []string{"rss", "hot_topics"},
	})
	require.NoError(t, err)

	assert.Equal(t, "crawler-1", agent.AgentID)
	assert.Equal(t, models.AgentActive, agent.Status)
	assert.False(t, agent.LastHeartbeat.IsZero())
	assert.True(t, agent.Capabilities.Contains("hot_topics"))
}

func TestRegisterAgentDefaultsToHostname(t *testing.T) {
	svc := NewAgentService(newFakeAgentRepo(), zap.NewNop())

	agent, err := svc.Register(RegisterInput{Hostname: "worker-host"})
	require.NoError(t, err)
	assert.Equal(t, "worker-host", agent.AgentID)
}

func TestRegisterAgentRequiresIdentity(t *testing.T) {
	svc := NewAgentService(newFakeAgentRepo(), zap.NewNop())

	_, err := svc.Register(RegisterInput{IPAddress: "10.0.0.5"})
	assert.True(t, errs.IsValidation(err))
}

func TestReRegisterDoesNotDuplicate(t *testing.T) {
	repo := newFakeAgentRepo()
	svc := NewAgentService(repo, zap.NewNop())

	_, err := svc.Register(RegisterInput{AgentID: "crawler-1", Version: "1.0.0"})
	require.NoError(t, err)
	updated, err := svc.Register(RegisterInput{AgentID: "crawler-1", Version: "1.1.0"})
	require.NoError(t, err)

	assert.Equal(t, "1.1.0", updated.Version)
	agents, err := svc.GetAgents("")
	require.NoError(t, err)
	assert.Len(t, agents, 1)
}

func TestHeartbeatUnknownAgent(t *testing.T) {
	svc := NewAgentService(newFakeAgentRepo(), zap.NewNop())

	_, err := svc.Heartbeat("ghost", HeartbeatInput{})
	assert.True(t, errs.IsNotFound(err))
}

func TestHeartbeatMergesPerformance(t *testing.T) {
	repo := newFakeAgentRepo()
	svc := NewAgentService(repo, zap.NewNop())

	registered, err := svc.Register(RegisterInput{AgentID: "crawler-1"})
	require.NoError(t, err)
	before := registered.LastHeartbeat

	agent, err := svc.Heartbeat("crawler-1", HeartbeatInput{
		Status: models.AgentIdle,
		Performance: &AgentPerformance{
			TotalTasks:        40,
			SuccessTasks:      37,
			FailedTasks:       3,
			AvgProcessingTime: 2.4,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.AgentIdle, agent.Status)
	assert.Equal(t, 40, agent.TotalTasks)
	assert.Equal(t, 37, agent.SuccessTasks)
	assert.Equal(t, 3, agent.FailedTasks)
	assert.InDelta(t, 2.4, agent.AvgProcessingTime, 0.001)
	assert.False(t, agent.LastHeartbeat.Before(before))
}

func TestHeartbeatWithoutPerformanceKeepsCounters(t *testing.T) {
	repo := newFakeAgentRepo()
	svc := NewAgentService(repo, zap.NewNop())

	_, err := svc.Register(RegisterInput{AgentID: "crawler-1"})
	require.NoError(t, err)
	_, err = svc.Heartbeat("crawler-1", HeartbeatInput{
		Performance: &AgentPerformance{TotalTasks: 10, SuccessTasks: 10},
	})
	require.NoError(t, err)

	agent, err := svc.Heartbeat("crawler-1", HeartbeatInput{})
	require.NoError(t, err)
	assert.Equal(t, 10, agent.TotalTasks)
	assert.Equal(t, models.AgentActive, agent.Status, "empty status defaults to active")
}

func TestGetAgentsFiltersByStatus(t *testing.T) {
	repo := newFakeAgentRepo()
	svc := NewAgentService(repo, zap.NewNop())

	_, err := svc.Register(RegisterInput{AgentID: "crawler-1"})
	require.NoError(t, err)
	_, err = svc.Register(RegisterInput{AgentID: "crawler-2"})
	require.NoError(t, err)
	_, err = svc.UpdateStatus("crawler-2", models.AgentOffline)
	require.NoError(t, err)

	active, err := svc.GetAgents(models.AgentActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "crawler-1", active[0].AgentID)

	all, err := svc.GetAgents("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
