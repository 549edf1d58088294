// The event scheduler delivers queued rewards on chain and snapshots
// the inventory.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/firmachain/nft-event-server/internal/api"
	"github.com/firmachain/nft-event-server/internal/chain"
	"github.com/firmachain/nft-event-server/internal/config"
	"github.com/firmachain/nft-event-server/internal/event"
	"github.com/firmachain/nft-event-server/internal/metrics"
	"github.com/firmachain/nft-event-server/internal/notify"
	"github.com/firmachain/nft-event-server/internal/scheduler"
	"github.com/firmachain/nft-event-server/internal/store"
	"github.com/firmachain/nft-event-server/pkg/crypto"
	"github.com/firmachain/nft-event-server/pkg/logger"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{Service: "event-scheduler", Level: cfg.Server.LogLevel})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	redis, err := store.NewRedisStore(ctx, store.RedisConfig{
		Addr:     cfg.Store.Addr,
		Password: cfg.Store.Password,
		DB:       cfg.Store.DB,
	})
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer redis.Close()

	// The mnemonic sits encrypted in the environment; only this process
	// ever sees the plaintext.
	mnemonic, err := crypto.DecryptString(cfg.Event.WalletMnemonic, cfg.Event.Secret)
	if err != nil {
		return fmt.Errorf("decrypt wallet mnemonic: %w", err)
	}

	chainClient, err := chain.NewClient(chain.Config{
		RPCURL:   cfg.Chain.RPCURL,
		Denom:    cfg.Chain.TokenID,
		Mnemonic: mnemonic,
	})
	if err != nil {
		return err
	}
	if err := chainClient.Connect(ctx); err != nil {
		return err
	}
	log.WithField("wallet", chainClient.Address()).Info("event wallet ready")

	var notifier scheduler.Notifier
	if cfg.Notify.BotToken != "" && cfg.Notify.ChatID != "" {
		notifier, err = notify.NewTelegram(notify.TelegramConfig{
			BotToken: cfg.Notify.BotToken,
			ChatID:   cfg.Notify.ChatID,
		})
		if err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Scheduler.MetricsPort),
		Handler:           api.NewMetricsRouter(registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Scheduler.MetricsPort).Info("scheduler metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics listener failed")
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics listener shutdown")
		}
	}()

	keys := eventKeys(cfg)
	queue := event.NewRewardQueue(redis, keys.RewardQueue, keys.RewardResult)
	inventory := event.NewInventory(redis, keys.NftQueue, keys.TokenQueue, keys.NftData)

	snapshot := scheduler.NewSnapshot(inventory, queue, log)
	snapshot.WithMetrics(m)
	if err := snapshot.Start(cfg.Scheduler.SnapshotSchedule); err != nil {
		return fmt.Errorf("schedule inventory snapshot: %w", err)
	}
	defer snapshot.Stop()

	worker := scheduler.NewWorker(queue, chainClient, notifier, scheduler.WorkerConfig{
		PollInterval: time.Duration(cfg.Scheduler.PollIntervalSeconds) * time.Second,
		SendTimeout:  time.Duration(cfg.Scheduler.SendTimeoutSeconds) * time.Second,
		ExplorerHost: cfg.Notify.ExplorerHost,
	}, log)
	worker.WithMetrics(m)

	log.Info("reward distribution worker starting")
	return worker.Run(ctx)
}

func eventKeys(cfg *config.Config) event.Keys {
	return event.Keys{
		Request:      cfg.Keys.Request,
		TicketResult: cfg.Keys.TicketResult,
		RewardQueue:  cfg.Keys.RewardQueue,
		RewardResult: cfg.Keys.RewardResult,
		NftData:      cfg.Keys.NftData,
		NftQueue:     cfg.Keys.NftQueue,
		TokenQueue:   cfg.Keys.TokenQueue,
		AddressBook:  cfg.Keys.AddressBook,
	}
}
