package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionJSON = `{
	"id": "gen-1",
	"object": "chat.completion",
	"created": 1767225600,
	"model": "openai/gpt-4o-mini",
	"choices": [{"index": 0, "finish_reason": "stop",
		"message": {"role": "assistant", "content": "Hi there"}}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

const modelsJSON = `{"data": [
	{"id": "openai/gpt-4o-mini", "name": "GPT-4o mini",
	 "pricing": {"prompt": "0.00000015", "completion": "0.0000006"},
	 "context_length": 128000, "top_provider": {"context_length": 64000},
	 "architecture": {"modality": "text+image->text"}},
	{"id": "meta/llama-free", "name": "Llama",
	 "pricing": {"prompt": "0", "completion": "0"},
	 "context_length": 8192, "architecture": {"modality": "text->text"}}
]}`

func TestOpenRouterService_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionJSON)
	}))
	defer srv.Close()

	svc := NewOpenRouterService("sk-test", srv.URL, "openai/gpt-4o-mini")
	msgs := ToProviderMessages("be brief", []HistoryMessage{{Role: "user", Content: ""}}, "what is this",
		[]ImageInput{{Name: "a.png", MediaType: "image/png", Data: pngBytes}})

	res, err := svc.Chat(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", res.Text)
	assert.Equal(t, int64(12), res.Usage.PromptTokens)
	assert.Equal(t, int64(3), res.Usage.CompletionTokens)

	assert.Equal(t, "openai/gpt-4o-mini", got["model"])
	sent := got["messages"].([]any)
	require.Len(t, sent, 3)
	assert.Equal(t, "system", sent[0].(map[string]any)["role"])
	assert.Equal(t, "[image]", sent[1].(map[string]any)["content"])

	parts := sent[2].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	img := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.Equal(t, DataURL("image/png", pngBytes), img["image_url"].(map[string]any)["url"])
}

func TestOpenRouterService_ChatErrorStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": {"message": "slow down", "code": 429}}`)
	}))
	defer srv.Close()

	svc := NewOpenRouterService("sk-test", srv.URL, "m")
	_, err := svc.Chat(context.Background(), ToProviderMessages("", nil, "hi", nil))
	require.Error(t, err)

	status, _, ok := ProviderStatus(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, int32(1), calls.Load(), "no retries")
}

func TestProviderStatus_NetworkError(t *testing.T) {
	svc := NewOpenRouterService("sk-test", "http://127.0.0.1:1", "m")
	_, err := svc.Chat(context.Background(), ToProviderMessages("", nil, "hi", nil))
	require.Error(t, err)

	_, _, ok := ProviderStatus(err)
	assert.False(t, ok)
}

func TestOpenRouterService_ListModelsCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/models", r.URL.Path)
		io.WriteString(w, modelsJSON)
	}))
	defer srv.Close()

	svc := NewOpenRouterService("", srv.URL+"/", "openai/gpt-4o-mini")

	models, err := svc.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)

	mini := models[0]
	assert.True(t, mini.PromptPrice.Equal(decimal.RequireFromString("0.15")))
	assert.True(t, mini.CompletionPrice.Equal(decimal.RequireFromString("0.6")))
	assert.Equal(t, 64000, mini.ContextLength)
	assert.True(t, mini.Capabilities.Vision)
	assert.True(t, models[1].IsFree())
	assert.False(t, models[1].Capabilities.Vision)

	m, err := svc.GetModel(context.Background(), "meta/llama-free")
	require.NoError(t, err)
	assert.Equal(t, "Llama", m.Name)

	_, err = svc.GetModel(context.Background(), "unknown/model")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenRouterService_ListModelsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOpenRouterService("", srv.URL, "m").ListModels(context.Background())
	assert.Error(t, err)
}

func TestToProviderMessages_TextOnly(t *testing.T) {
	msgs := ToProviderMessages("", []HistoryMessage{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "a"},
	}, "next", nil)

	require.Len(t, msgs, 3)
	assert.NotNil(t, msgs[0].OfUser)
	assert.NotNil(t, msgs[1].OfAssistant)
	require.NotNil(t, msgs[2].OfUser)
	assert.Equal(t, "next", msgs[2].OfUser.Content.OfString.Value)
}

func TestCalculateCost(t *testing.T) {
	cost := CalculateCost(1_000_000, 500_000, decimal.RequireFromString("0.15"), decimal.RequireFromString("0.6"))
	assert.True(t, cost.Equal(decimal.RequireFromString("0.45")), cost.String())

	model := &domain.AIModel{PromptPrice: decimal.NewFromInt(2), CompletionPrice: decimal.NewFromInt(4)}
	got := CostForModel(model, Usage{PromptTokens: 250_000, CompletionTokens: 250_000})
	assert.True(t, got.Equal(decimal.RequireFromString("1.5")), got.String())

	assert.True(t, CostForModel(nil, Usage{PromptTokens: 10}).IsZero())
}

func TestDetectCapabilities(t *testing.T) {
	assert.True(t, detectCapabilities("anthropic/claude-3-haiku", "text->text").Vision)
	assert.True(t, detectCapabilities("x/y", "text+image->text").Files)
	assert.False(t, detectCapabilities("x/y", "text->image").Vision)
	assert.True(t, detectCapabilities("black-forest-labs/flux-1", "text->image").ImageGeneration)
}
