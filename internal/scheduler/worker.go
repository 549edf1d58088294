// Package scheduler runs the background jobs of the event: the reward
// distribution worker and the periodic inventory snapshot.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/firmachain/nft-event-server/internal/event"
	"github.com/firmachain/nft-event-server/internal/metrics"
	"github.com/firmachain/nft-event-server/pkg/logger"
)

// TxResult is the outcome of one broadcast transaction.
type TxResult struct {
	Code            int64
	TransactionHash string
}

// ChainClient broadcasts the two reward transfer legs.
type ChainClient interface {
	SendToken(ctx context.Context, toAddress string, amount int64) (TxResult, error)
	TransferNft(ctx context.Context, toAddress, nftID string) (TxResult, error)
}

// Notifier pushes operator notifications. Delivery is best effort; the
// worker logs and moves on when a notification fails.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// WorkerConfig tunes the distribution worker.
type WorkerConfig struct {
	PollInterval time.Duration
	SendTimeout  time.Duration
	ExplorerHost string
}

// Worker drains the reward queue and delivers each job on chain: the
// token amount first, then the NFT. Jobs survive a crash mid-delivery
// on the processing list and are requeued when the worker restarts.
type Worker struct {
	queue  *event.RewardQueue
	chain  ChainClient
	notify Notifier
	cfg    WorkerConfig
	log    *logger.Logger
	m      *metrics.Metrics
}

// NewWorker creates a distribution worker.
func NewWorker(queue *event.RewardQueue, chain ChainClient, notify Notifier, cfg WorkerConfig, log *logger.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 60 * time.Second
	}
	return &Worker{queue: queue, chain: chain, notify: notify, cfg: cfg, log: log}
}

// WithMetrics attaches prometheus collectors.
func (w *Worker) WithMetrics(m *metrics.Metrics) {
	w.m = m
}

// Run processes jobs until the context is canceled. An empty queue is
// polled on the configured interval. Errors never escape the loop: a
// store failure is logged and retried on the next cycle.
func (w *Worker) Run(ctx context.Context) error {
	recovered, err := w.queue.RequeueInFlight(ctx)
	if err != nil {
		w.log.WithError(err).Error("recover in-flight jobs")
	}
	if recovered > 0 {
		w.log.WithField("count", recovered).Warn("requeued jobs stranded by previous run")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		worked, err := w.processNext(ctx)
		if err != nil {
			w.log.WithError(err).Error("process reward job")
		}
		if worked && err == nil {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// processNext handles one job. It returns false when the queue was
// empty. Chain-level failures are notified and the job is acknowledged;
// store errors are reported to Run, which logs and keeps looping.
func (w *Worker) processNext(ctx context.Context) (bool, error) {
	raw, ok, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	w.deliver(ctx, raw)

	if err := w.queue.Ack(ctx, raw); err != nil {
		return true, err
	}
	return true, nil
}

func (w *Worker) deliver(ctx context.Context, raw string) {
	address := gjson.Get(raw, "address").String()
	reward := gjson.Get(raw, "rewardData").String()
	amount := gjson.Get(reward, "tokenData").Int()
	nftID := gjson.Get(gjson.Get(reward, "nftData").String(), "nftId").String()

	log := w.log.WithField("address", address).
		WithField("amount", amount).
		WithField("nft_id", nftID)

	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	res, err := w.chain.SendToken(sendCtx, address, amount)
	cancel()
	if err != nil {
		log.WithError(err).Error("token transfer broadcast failed")
		w.m.RecordDelivery("token", "error")
		w.notifyf(ctx, "[EVENT] token transfer to %s failed: %v", address, err)
		return
	}
	if res.Code != 0 {
		// A rejected token leg is final but does not block the NFT leg.
		log.WithField("code", res.Code).
			WithField("tx_hash", res.TransactionHash).
			Error("token transfer rejected on chain")
		w.m.RecordDelivery("token", "failed")
		w.notifyf(ctx, "[EVENT] token transfer to %s rejected, code %d\n%s", address, res.Code, w.txLink(res.TransactionHash))
	} else {
		if err := w.queue.WriteResult(ctx, address, res.TransactionHash); err != nil {
			log.WithError(err).Error("record token transfer result")
		}
		w.m.RecordDelivery("token", "success")
		w.notifyf(ctx, "[EVENT] %d tokens sent to %s\n%s", amount, address, w.txLink(res.TransactionHash))
	}

	sendCtx, cancel = context.WithTimeout(ctx, w.cfg.SendTimeout)
	res, err = w.chain.TransferNft(sendCtx, address, nftID)
	cancel()
	if err != nil {
		log.WithError(err).Error("nft transfer broadcast failed")
		w.m.RecordDelivery("nft", "error")
		w.notifyf(ctx, "[EVENT] nft %s transfer to %s failed: %v", nftID, address, err)
		return
	}
	if res.Code != 0 {
		log.WithField("code", res.Code).
			WithField("tx_hash", res.TransactionHash).
			Error("nft transfer rejected on chain")
		w.m.RecordDelivery("nft", "failed")
		w.notifyf(ctx, "[EVENT] nft %s transfer to %s rejected, code %d\n%s", nftID, address, res.Code, w.txLink(res.TransactionHash))
		return
	}
	if err := w.queue.WriteResult(ctx, address, res.TransactionHash); err != nil {
		log.WithError(err).Error("record nft transfer result")
	}
	w.m.RecordDelivery("nft", "success")
	w.notifyf(ctx, "[EVENT] nft %s sent to %s\n%s", nftID, address, w.txLink(res.TransactionHash))

	log.Info("reward delivered")
}

func (w *Worker) notifyf(ctx context.Context, format string, args ...interface{}) {
	if w.notify == nil {
		return
	}
	if err := w.notify.Notify(ctx, fmt.Sprintf(format, args...)); err != nil {
		w.log.WithError(err).Warn("operator notification failed")
	}
}

func (w *Worker) txLink(hash string) string {
	if w.cfg.ExplorerHost == "" || hash == "" {
		return hash
	}
	return w.cfg.ExplorerHost + "/transactions/" + hash
}
