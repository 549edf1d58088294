package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramNotify(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{BotToken: "TOKEN", ChatID: "-100123", BaseURL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, tg.Notify(context.Background(), "[EVENT] reward sent"))

	assert.Equal(t, "-100123", got["chat_id"])
	assert.Equal(t, "[EVENT] reward sent", got["text"])
	assert.Equal(t, true, got["disable_web_page_preview"])
}

func TestTelegramNotifyAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{BotToken: "TOKEN", ChatID: "nope", BaseURL: srv.URL})
	require.NoError(t, err)

	err = tg.Notify(context.Background(), "message")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramConfigValidation(t *testing.T) {
	_, err := NewTelegram(TelegramConfig{ChatID: "-100123"})
	assert.Error(t, err)

	_, err = NewTelegram(TelegramConfig{BotToken: "TOKEN"})
	assert.Error(t, err)
}
