// The event server exposes the sign and reward HTTP API.
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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/firmachain/nft-event-server/internal/api"
	"github.com/firmachain/nft-event-server/internal/config"
	"github.com/firmachain/nft-event-server/internal/event"
	"github.com/firmachain/nft-event-server/internal/metrics"
	"github.com/firmachain/nft-event-server/internal/relay"
	"github.com/firmachain/nft-event-server/internal/store"
	"github.com/firmachain/nft-event-server/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{Service: "event-server", Level: cfg.Server.LogLevel})

	redis, err := store.NewRedisStore(context.Background(), store.RedisConfig{
		Addr:     cfg.Store.Addr,
		Password: cfg.Store.Password,
		DB:       cfg.Store.DB,
	})
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer redis.Close()

	relayClient, err := relay.NewClient(relay.Config{BaseURL: cfg.Relay.URL})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	engine := event.NewEngine(
		redis,
		eventKeys(cfg),
		time.Duration(cfg.Event.RequestExpireSecond)*time.Second,
		relayClient,
		event.EngineConfig{
			ProjectSecret: cfg.Relay.ProjectSecret,
			WalletAddress: cfg.Event.WalletAddress,
			TicketAmount:  cfg.Event.TicketAmount,
			TokenDenom:    cfg.Chain.TokenID,
			LoginInfo:     cfg.Event.LoginMessage,
			PlayInfo:      cfg.Event.PlayMessage,
			RewardInfo:    cfg.Event.RewardMessage,
		},
		log,
	)
	engine.WithMetrics(m)

	router := api.NewRouter(engine, log, api.Options{
		Metrics:        m,
		Registry:       registry,
		RateLimit:      cfg.Server.RateLimit,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("event server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
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
