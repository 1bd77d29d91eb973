package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/shopspring/decimal"
)

type OpenRouterService struct {
	client     openai.Client
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	cache      *ModelsCache
}

func NewOpenRouterService(apiKey, baseURL, model string) *OpenRouterService {
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := &http.Client{Timeout: config.RequestTimeout}

	return &OpenRouterService{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL+"/"),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
			option.WithHeader("X-Title", "mindchat"),
		),
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		cache:      NewModelsCache(config.ModelCacheDuration),
	}
}

// Usage is the token accounting of one completion.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

type ChatResult struct {
	Text  string
	Model string
	Usage Usage
}

func (s *OpenRouterService) Model() string {
	return s.model
}

// Chat runs one non-streaming completion against the configured model.
func (s *OpenRouterService) Chat(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (*ChatResult, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.model),
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty choices")
	}

	return &ChatResult{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// ProviderStatus extracts the upstream HTTP status and message from a Chat
// error. ok is false when the provider never answered.
func ProviderStatus(err error) (status int, message string, ok bool) {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return 0, "", false
	}
	return apiErr.StatusCode, apiErr.Message, true
}

func (s *OpenRouterService) ListModels(ctx context.Context) ([]domain.AIModel, error) {
	if cached := s.cache.Get(); cached != nil {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch models: status %d", resp.StatusCode)
	}

	var result struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Pricing     struct {
				Prompt     string `json:"prompt"`
				Completion string `json:"completion"`
			} `json:"pricing"`
			ContextLength int `json:"context_length"`
			TopProvider   struct {
				ContextLength int `json:"context_length"`
			} `json:"top_provider"`
			Architecture struct {
				Modality string `json:"modality"`
			} `json:"architecture"`
		} `json:"data"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	models := make([]domain.AIModel, 0, len(result.Data))
	for _, m := range result.Data {
		ctxLen := m.ContextLength
		if m.TopProvider.ContextLength > 0 {
			ctxLen = m.TopProvider.ContextLength
		}

		models = append(models, domain.AIModel{
			ID:              m.ID,
			Name:            m.Name,
			Description:     m.Description,
			PromptPrice:     perMillionPrice(m.Pricing.Prompt),
			CompletionPrice: perMillionPrice(m.Pricing.Completion),
			ContextLength:   ctxLen,
			Capabilities:    detectCapabilities(m.ID, m.Architecture.Modality),
		})
	}

	s.cache.Set(models)
	return models, nil
}

func (s *OpenRouterService) GetModel(ctx context.Context, modelID string) (*domain.AIModel, error) {
	if m, ok := s.cache.Lookup(modelID); ok {
		return &m, nil
	}
	models, err := s.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range models {
		if m.ID == modelID {
			return &m, nil
		}
	}
	return nil, domain.ErrModelNotFound
}

// perMillionPrice converts OpenRouter's per-token price string.
func perMillionPrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d.Mul(perMillion)
}

func detectCapabilities(modelID, modality string) domain.ModelCapabilities {
	id := strings.ToLower(modelID)
	input := modality
	if i := strings.Index(modality, "->"); i >= 0 {
		input = modality[:i]
	}
	caps := domain.ModelCapabilities{}

	if strings.Contains(id, "vision") || strings.Contains(id, "gpt-4o") ||
		strings.Contains(id, "claude-3") || strings.Contains(id, "gemini") ||
		strings.Contains(id, "llava") || strings.Contains(input, "image") {
		caps.Vision = true
	}

	if strings.Contains(id, "audio") || strings.Contains(modality, "audio") {
		caps.Audio = true
	}

	if strings.Contains(id, "dall-e") || strings.Contains(id, "stable-diffusion") ||
		strings.Contains(id, "flux") || strings.Contains(id, "imagen") {
		caps.ImageGeneration = true
	}

	// vision models accept file uploads
	if caps.Vision {
		caps.Files = true
	}

	return caps
}
