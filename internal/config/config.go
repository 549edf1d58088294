// Package config loads the environment configuration for the event
// services. Both processes (server and scheduler) share one surface; each
// reads the subset it needs.
package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the full environment surface.
type Config struct {
	Server struct {
		Port           int    `env:"PORT,default=4000"`
		LogLevel       string `env:"LOG_LEVEL,default=info"`
		RateLimit      int    `env:"RATE_LIMIT,default=20"`
		RateLimitBurst int    `env:"RATE_LIMIT_BURST,default=40"`
	}

	Store struct {
		Addr     string `env:"REDIS,default=localhost:6379"`
		Password string `env:"REDIS_PASS,default="`
		DB       int    `env:"REDIS_DB,default=0"`
	}

	Relay struct {
		URL           string `env:"RELAY,required"`
		ProjectSecret string `env:"PROJECT_SECRET_KEY,required"`
	}

	Chain struct {
		RPCURL  string `env:"CHAIN_RPC,required"`
		TokenID string `env:"EVENT_TOKEN_ID,default=ufct"`
	}

	Event struct {
		WalletMnemonic      string `env:"EVENT_WALLET_MNEMONIC,required"`
		WalletAddress       string `env:"EVENT_WALLET_ADDRESS,required"`
		Secret              string `env:"SECRET,required"`
		TicketAmount        string `env:"EVENT_TICKET_AMOUNT,default=1000000"`
		RequestExpireSecond int    `env:"REQUEST_EXPIRE_SECOND,default=180"`
		LoginMessage        string `env:"LOGIN_MESSAGE,default=EVENT LOGIN"`
		PlayMessage         string `env:"PLAY_MESSAGE,default=EVENT PLAY"`
		RewardMessage       string `env:"REWARD_MESSAGE,default=EVENT REWARD"`
	}

	// Store key names. Overridable so several events can share one redis.
	Keys struct {
		Request      string `env:"EVENT_REQUEST,default=event:request:"`
		TicketResult string `env:"EVENT_TICKET_RESULT,default=event:ticket:result"`
		RewardQueue  string `env:"EVENT_REWARD_QUEUE,default=event:reward:queue"`
		RewardResult string `env:"EVENT_REWARD_RESULT,default=event:reward:result"`
		NftData      string `env:"EVENT_REWARD_NFT_DATA,default=event:reward:nft:data"`
		NftQueue     string `env:"EVENT_REWARD_NFT_QUEUE,default=event:reward:nft:queue:"`
		TokenQueue   string `env:"EVENT_REWARD_TOKEN_QUEUE,default=event:reward:token:queue"`
		AddressBook  string `env:"ADDRESSBOOK,default=event:addressbook"`
	}

	Notify struct {
		BotToken     string `env:"BOT_TOKEN,default="`
		ChatID       string `env:"CHAT_ID,default="`
		ExplorerHost string `env:"EXPLORER_HOST,default="`
	}

	Scheduler struct {
		PollIntervalSeconds int    `env:"REWARD_POLL_INTERVAL_SECOND,default=3"`
		SendTimeoutSeconds  int    `env:"CHAIN_SEND_TIMEOUT_SECOND,default=60"`
		SnapshotSchedule    string `env:"INVENTORY_SNAPSHOT_SCHEDULE,default=@every 5m"`
		MetricsPort         int    `env:"SCHEDULER_METRICS_PORT,default=4001"`
	}
}

// Load reads .env if present and decodes the environment.
func Load() (*Config, error) {
	// Missing .env is fine in deployed environments.
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}
