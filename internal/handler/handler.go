package handler

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/service"
)

// ChatProvider is the upstream model API as seen by the relay.
type ChatProvider interface {
	Chat(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (*service.ChatResult, error)
	Model() string
	ListModels(ctx context.Context) ([]domain.AIModel, error)
	GetModel(ctx context.Context, modelID string) (*domain.AIModel, error)
}

// Handler holds all dependencies needed by the relay endpoints.
type Handler struct {
	cfg        *config.RelayConfig
	openRouter ChatProvider
	now        func() time.Time
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Cfg        *config.RelayConfig
	OpenRouter ChatProvider
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		cfg:        deps.Cfg,
		openRouter: deps.OpenRouter,
		now:        time.Now,
	}
}
