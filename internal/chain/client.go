// Package chain talks to the FirmaChain wallet daemon that signs and
// broadcasts the event wallet's transactions.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/firmachain/nft-event-server/internal/scheduler"
)

// Client is a JSON-RPC client for the wallet daemon.
type Client struct {
	mu         sync.RWMutex
	rpcURL     string
	httpClient *http.Client
	denom      string
	mnemonic   string
	address    string
}

// Config holds client configuration.
type Config struct {
	RPCURL  string
	Denom   string
	Timeout time.Duration

	// Mnemonic of the event wallet, recovered on the daemon by Connect.
	Mnemonic string
}

// NewClient creates a wallet daemon client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url required")
	}
	if cfg.Denom == "" {
		cfg.Denom = "ufct"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		rpcURL:     cfg.RPCURL,
		httpClient: &http.Client{Timeout: timeout},
		denom:      cfg.Denom,
		mnemonic:   cfg.Mnemonic,
	}, nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call makes one JSON-RPC call to the daemon.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// Connect recovers the event wallet on the daemon and caches its
// address. It must be called before any transfer.
func (c *Client) Connect(ctx context.Context) error {
	result, err := c.call(ctx, "wallet_recover", map[string]string{"mnemonic": c.mnemonic})
	if err != nil {
		return fmt.Errorf("recover wallet: %w", err)
	}

	var wallet struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(result, &wallet); err != nil {
		return fmt.Errorf("parse wallet: %w", err)
	}
	if wallet.Address == "" {
		return fmt.Errorf("daemon returned empty wallet address")
	}

	c.mu.Lock()
	c.address = wallet.Address
	c.mu.Unlock()
	return nil
}

// Address returns the recovered event wallet address.
func (c *Client) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address
}

type txResult struct {
	Code            int64  `json:"code"`
	TransactionHash string `json:"transactionHash"`
}

// SendToken broadcasts a bank send of the reward token amount.
func (c *Client) SendToken(ctx context.Context, toAddress string, amount int64) (scheduler.TxResult, error) {
	result, err := c.call(ctx, "bank_send", map[string]interface{}{
		"fromAddress": c.Address(),
		"toAddress":   toAddress,
		"denom":       c.denom,
		"amount":      amount,
	})
	if err != nil {
		return scheduler.TxResult{}, fmt.Errorf("bank send: %w", err)
	}

	var tx txResult
	if err := json.Unmarshal(result, &tx); err != nil {
		return scheduler.TxResult{}, fmt.Errorf("parse bank send result: %w", err)
	}
	return scheduler.TxResult{Code: tx.Code, TransactionHash: tx.TransactionHash}, nil
}

// TransferNft broadcasts an NFT ownership transfer.
func (c *Client) TransferNft(ctx context.Context, toAddress, nftID string) (scheduler.TxResult, error) {
	result, err := c.call(ctx, "nft_transfer", map[string]interface{}{
		"fromAddress": c.Address(),
		"toAddress":   toAddress,
		"nftId":       nftID,
	})
	if err != nil {
		return scheduler.TxResult{}, fmt.Errorf("nft transfer: %w", err)
	}

	var tx txResult
	if err := json.Unmarshal(result, &tx); err != nil {
		return scheduler.TxResult{}, fmt.Errorf("parse nft transfer result: %w", err)
	}
	return scheduler.TxResult{Code: tx.Code, TransactionHash: tx.TransactionHash}, nil
}
