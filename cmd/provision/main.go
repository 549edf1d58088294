// The provision tool seeds the reward inventory from a YAML manifest
// and prepares the encrypted wallet mnemonic for the scheduler.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/firmachain/nft-event-server/internal/config"
	"github.com/firmachain/nft-event-server/internal/event"
	"github.com/firmachain/nft-event-server/internal/store"
	"github.com/firmachain/nft-event-server/pkg/crypto"
	"github.com/firmachain/nft-event-server/pkg/logger"
)

const usage = `usage:
  provision load -file inventory.yaml    seed the reward inventory
  provision encrypt -mnemonic "..."      encrypt a wallet mnemonic with SECRET`

// Manifest is the YAML inventory description.
type Manifest struct {
	Nfts []struct {
		Type      string `yaml:"type"`
		NftID     string `yaml:"nftId"`
		DappNftID string `yaml:"dappNftId"`
		Metadata  struct {
			Name        string      `yaml:"name"`
			Description string      `yaml:"description"`
			Attributes  []yaml.Node `yaml:"attributes"`
		} `yaml:"metadata"`
	} `yaml:"nfts"`

	Tokens []struct {
		Amount int64 `yaml:"amount"`
		Count  int   `yaml:"count"`
	} `yaml:"tokens"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("%s", usage)
	}

	switch os.Args[1] {
	case "load":
		fs := flag.NewFlagSet("load", flag.ExitOnError)
		file := fs.String("file", "inventory.yaml", "inventory manifest path")
		fs.Parse(os.Args[2:])
		return load(*file)
	case "encrypt":
		fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
		mnemonic := fs.String("mnemonic", "", "plaintext wallet mnemonic")
		fs.Parse(os.Args[2:])
		return encrypt(*mnemonic)
	default:
		return fmt.Errorf("unknown command %q\n%s", os.Args[1], usage)
	}
}

func encrypt(mnemonic string) error {
	if mnemonic == "" {
		return fmt.Errorf("mnemonic required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	payload, err := crypto.EncryptString(mnemonic, cfg.Event.Secret)
	if err != nil {
		return err
	}
	fmt.Println(payload)
	return nil
}

func load(file string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{Service: "event-provision", Level: cfg.Server.LogLevel})

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	ctx := context.Background()
	redis, err := store.NewRedisStore(ctx, store.RedisConfig{
		Addr:     cfg.Store.Addr,
		Password: cfg.Store.Password,
		DB:       cfg.Store.DB,
	})
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer redis.Close()

	inventory := event.NewInventory(redis, cfg.Keys.NftQueue, cfg.Keys.TokenQueue, cfg.Keys.NftData)

	for _, nft := range manifest.Nfts {
		descriptor, err := json.Marshal(map[string]string{
			"nftId":     nft.NftID,
			"dappNftId": nft.DappNftID,
		})
		if err != nil {
			return err
		}
		if err := inventory.AddNft(ctx, nft.Type, string(descriptor)); err != nil {
			return fmt.Errorf("queue nft %s: %w", nft.NftID, err)
		}

		attributes, err := attributesJSON(nft.Metadata.Attributes)
		if err != nil {
			return fmt.Errorf("nft %s attributes: %w", nft.NftID, err)
		}
		metadata, err := json.Marshal(map[string]interface{}{
			"nftId":       nft.NftID,
			"name":        nft.Metadata.Name,
			"description": nft.Metadata.Description,
			"attributes":  json.RawMessage(attributes),
		})
		if err != nil {
			return err
		}
		if err := inventory.SetNftMetadata(ctx, nft.DappNftID, string(metadata)); err != nil {
			return fmt.Errorf("store metadata for %s: %w", nft.DappNftID, err)
		}
	}

	tokenCount := 0
	for _, token := range manifest.Tokens {
		count := token.Count
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			if err := inventory.AddToken(ctx, token.Amount); err != nil {
				return fmt.Errorf("queue token amount %d: %w", token.Amount, err)
			}
			tokenCount++
		}
	}

	log.WithField("nfts", len(manifest.Nfts)).
		WithField("tokens", tokenCount).
		Info("inventory provisioned")
	return nil
}

// attributesJSON re-renders the free-form YAML attribute list as JSON.
func attributesJSON(nodes []yaml.Node) ([]byte, error) {
	attrs := make([]interface{}, 0, len(nodes))
	for _, node := range nodes {
		var value interface{}
		if err := node.Decode(&value); err != nil {
			return nil, err
		}
		attrs = append(attrs, value)
	}
	return json.Marshal(attrs)
}
