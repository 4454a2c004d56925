package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/config"
	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/internal/repository"
)

// sweepInterval is how often stale claimed tasks are checked for expiry.
const sweepInterval = 10 * time.Minute

// Scheduler drives the periodic full feed sync and expires hot-topic tasks
// whose claiming worker never reported all platforms.
type Scheduler struct {
	config       *config.SchedulerConfig
	logger       *zap.Logger
	orchestrator *SyncOrchestrator
	topics       repository.HotTopicRepository
	claimTimeout time.Duration
	syncTicker   *time.Ticker
	sweepTicker  *time.Ticker
	stopCh       chan struct{}
}

func NewScheduler(cfg *config.SchedulerConfig, tasksCfg *config.TasksConfig, logger *zap.Logger, orchestrator *SyncOrchestrator, topics repository.HotTopicRepository) *Scheduler {
	claimTimeout, err := time.ParseDuration(tasksCfg.ClaimTimeout)
	if err != nil || claimTimeout <= 0 {
		claimTimeout = 6 * time.Hour
	}
	return &Scheduler{
		config:       cfg,
		logger:       logger,
		orchestrator: orchestrator,
		topics:       topics,
		claimTimeout: claimTimeout,
		stopCh:       make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	interval, err := time.ParseDuration(s.config.SyncInterval)
	if err != nil {
		s.logger.Error("Invalid sync interval", zap.String("interval", s.config.SyncInterval), zap.Error(err))
		return err
	}

	s.logger.Info("Starting scheduler",
		zap.String("sync_interval", s.config.SyncInterval),
		zap.Duration("claim_timeout", s.claimTimeout))

	s.syncTicker = time.NewTicker(interval)
	s.sweepTicker = time.NewTicker(sweepInterval)

	go func() {
		for {
			select {
			case <-s.syncTicker.C:
				s.logger.Info("Enqueueing scheduled sync")
				if _, err := s.orchestrator.EnqueueSyncAll(models.TriggerSchedule); err != nil {
					s.logger.Error("Scheduled sync enqueue failed", zap.Error(err))
				}
			case <-s.sweepTicker.C:
				s.expireStaleTasks()
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	if s.syncTicker != nil {
		s.syncTicker.Stop()
	}
	if s.sweepTicker != nil {
		s.sweepTicker.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Scheduler shutdown completed")
}

// expireStaleTasks marks tasks failed when the claiming worker has not
// completed them within the claim timeout. Absent this sweep a silent worker
// would leave a claimed task in limbo forever.
func (s *Scheduler) expireStaleTasks() {
	expired, err := s.topics.FailTimedOutTasks(time.Now().Add(-s.claimTimeout))
	if err != nil {
		s.logger.Error("Stale task sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Warn("Expired stale claimed tasks", zap.Int64("count", expired))
	}
}
