package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDaemon(t *testing.T, handler func(method string, params json.RawMessage) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": 1}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestClientConnect(t *testing.T) {
	daemon := newDaemon(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		require.Equal(t, "wallet_recover", method)

		var p map[string]string
		require.NoError(t, json.Unmarshal(params, &p))
		assert.Equal(t, "test mnemonic words", p["mnemonic"])

		return map[string]string{"address": "firma1eventwallet"}, nil
	})
	defer daemon.Close()

	client, err := NewClient(Config{RPCURL: daemon.URL, Mnemonic: "test mnemonic words"})
	require.NoError(t, err)

	require.NoError(t, client.Connect(context.Background()))
	assert.Equal(t, "firma1eventwallet", client.Address())
}

func TestClientSendToken(t *testing.T) {
	daemon := newDaemon(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		switch method {
		case "wallet_recover":
			return map[string]string{"address": "firma1eventwallet"}, nil
		case "bank_send":
			var p map[string]interface{}
			require.NoError(t, json.Unmarshal(params, &p))
			assert.Equal(t, "firma1eventwallet", p["fromAddress"])
			assert.Equal(t, "firma1xyz", p["toAddress"])
			assert.Equal(t, "ufct", p["denom"])
			assert.EqualValues(t, 100, p["amount"])
			return txResult{Code: 0, TransactionHash: "ABC123"}, nil
		default:
			t.Fatalf("unexpected method %s", method)
			return nil, nil
		}
	})
	defer daemon.Close()

	client, err := NewClient(Config{RPCURL: daemon.URL, Mnemonic: "m"})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))

	res, err := client.SendToken(context.Background(), "firma1xyz", 100)
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Code)
	assert.Equal(t, "ABC123", res.TransactionHash)
}

func TestClientTransferNftChainRejection(t *testing.T) {
	daemon := newDaemon(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		if method == "wallet_recover" {
			return map[string]string{"address": "firma1eventwallet"}, nil
		}
		return txResult{Code: 19, TransactionHash: "DEAD"}, nil
	})
	defer daemon.Close()

	client, err := NewClient(Config{RPCURL: daemon.URL, Mnemonic: "m"})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))

	// A non-zero code is data, not an error.
	res, err := client.TransferNft(context.Background(), "firma1xyz", "nft-77")
	require.NoError(t, err)
	assert.EqualValues(t, 19, res.Code)
}

func TestClientRPCError(t *testing.T) {
	daemon := newDaemon(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "mempool full"}
	})
	defer daemon.Close()

	client, err := NewClient(Config{RPCURL: daemon.URL, Mnemonic: "m"})
	require.NoError(t, err)

	err = client.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mempool full")
}
