// Package relay implements the HTTP client for the sign relay, the
// service that collects wallet signatures out of band and resolves NFT
// image URIs.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/firmachain/nft-event-server/internal/event"
)

// Client talks to the relay's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a relay client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("relay base url required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("relay %s failed with status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("relay %s failed with status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Connect opens a relay session for the project.
func (c *Client) Connect(ctx context.Context, projectSecret string) (event.Session, error) {
	var session event.Session
	err := c.post(ctx, "/v1/connect", map[string]string{"projectSecretKey": projectSecret}, &session)
	if err != nil {
		return event.Session{}, err
	}
	return session, nil
}

// SignDoc builds the serialized sign document for the transfer messages.
func (c *Client) SignDoc(ctx context.Context, signer, pubkey string, msgs []event.TransferMessage) (string, error) {
	var result struct {
		SignDoc string `json:"signDoc"`
	}
	err := c.post(ctx, "/v1/signdoc", map[string]interface{}{
		"signer": signer,
		"pubkey": pubkey,
		"msgs":   msgs,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.SignDoc, nil
}

// QRCodeForArbitrarySign requests a free-text sign challenge.
func (c *Client) QRCodeForArbitrarySign(ctx context.Context, session event.Session, message, info string) (string, error) {
	var result struct {
		QRCode string `json:"qrcode"`
	}
	err := c.post(ctx, "/v1/sign/arbitrary", map[string]string{
		"session": session.ID,
		"message": message,
		"info":    info,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.QRCode, nil
}

// QRCodeForDirectSign requests a sign challenge over a prepared sign
// document.
func (c *Client) QRCodeForDirectSign(ctx context.Context, session event.Session, signer, signDoc, info string, fee event.FeeOptions) (string, error) {
	var result struct {
		QRCode string `json:"qrcode"`
	}
	err := c.post(ctx, "/v1/sign/direct", map[string]interface{}{
		"session": session.ID,
		"signer":  signer,
		"signDoc": signDoc,
		"info":    info,
		"fee":     fee,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.QRCode, nil
}

// VerifyArbitrarySignature checks a raw signature against the original
// free-text message.
func (c *Client) VerifyArbitrarySignature(ctx context.Context, rawData, originalMessage string) (bool, error) {
	var result struct {
		IsValid bool `json:"isValid"`
	}
	err := c.post(ctx, "/v1/verify/arbitrary", map[string]string{
		"rawData": rawData,
		"message": originalMessage,
	}, &result)
	if err != nil {
		return false, err
	}
	return result.IsValid, nil
}

// VerifyDirectSignature checks a signature against a sign document and
// the expected signer address.
func (c *Client) VerifyDirectSignature(ctx context.Context, address, signature, signDoc string) (bool, error) {
	var result struct {
		IsValid bool `json:"isValid"`
	}
	err := c.post(ctx, "/v1/verify/direct", map[string]string{
		"address":   address,
		"signature": signature,
		"signDoc":   signDoc,
	}, &result)
	if err != nil {
		return false, err
	}
	return result.IsValid, nil
}

// SignerPubkeyFromRaw extracts the signer public key from a raw
// signature payload. The payload is the relay's signature envelope; the
// key sits under pubKey.value.
func (c *Client) SignerPubkeyFromRaw(rawData string) (string, error) {
	pubkey := gjson.Get(rawData, "pubKey.value").String()
	if pubkey == "" {
		return "", fmt.Errorf("raw signature carries no public key")
	}
	return pubkey, nil
}

// NftImageURI resolves the image URI for an on-chain NFT id.
func (c *Client) NftImageURI(ctx context.Context, nftID string) (string, error) {
	var result struct {
		URI string `json:"uri"`
	}
	if err := c.get(ctx, "/v1/nft/"+nftID+"/image", &result); err != nil {
		return "", err
	}
	return result.URI, nil
}
