package scheduler

import (
	"context"
	"strconv"

	"github.com/robfig/cron/v3"

	"github.com/firmachain/nft-event-server/internal/event"
	"github.com/firmachain/nft-event-server/internal/metrics"
	"github.com/firmachain/nft-event-server/pkg/logger"
)

// Snapshot periodically logs the remaining inventory and the queue
// depth, and publishes them as gauges.
type Snapshot struct {
	inventory *event.Inventory
	queue     *event.RewardQueue
	log       *logger.Logger
	m         *metrics.Metrics
	cron      *cron.Cron
}

// NewSnapshot creates the snapshot job.
func NewSnapshot(inventory *event.Inventory, queue *event.RewardQueue, log *logger.Logger) *Snapshot {
	return &Snapshot{
		inventory: inventory,
		queue:     queue,
		log:       log,
		cron:      cron.New(),
	}
}

// WithMetrics attaches prometheus collectors.
func (s *Snapshot) WithMetrics(m *metrics.Metrics) {
	s.m = m
}

// Start schedules the job and begins the cron loop.
func (s *Snapshot) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		s.Take(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Snapshot) Stop() {
	<-s.cron.Stop().Done()
}

// Take records one snapshot.
func (s *Snapshot) Take(ctx context.Context) {
	log := s.log

	for i := 0; i < event.NftTypeCount; i++ {
		nftType := strconv.Itoa(i)
		count, err := s.inventory.RemainingCount(ctx, nftType)
		if err != nil {
			s.log.WithError(err).WithField("nft_type", nftType).Error("read inventory count")
			return
		}
		s.m.SetInventoryRemaining(nftType, count)
		log = log.WithField("nft_type_"+nftType, count)
	}

	pending, err := s.queue.Length(ctx)
	if err != nil {
		s.log.WithError(err).Error("read queue depth")
		return
	}

	log.WithField("pending_rewards", pending).Info("inventory snapshot")
}
