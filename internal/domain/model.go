package domain

import "github.com/shopspring/decimal"

type AIModel struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	PromptPrice     decimal.Decimal   `json:"promptPrice"`     // per 1M tokens
	CompletionPrice decimal.Decimal   `json:"completionPrice"` // per 1M tokens
	ContextLength   int               `json:"contextLength"`
	Capabilities    ModelCapabilities `json:"capabilities"`
}

type ModelCapabilities struct {
	Vision          bool `json:"vision"`
	Audio           bool `json:"audio"`
	ImageGeneration bool `json:"imageGeneration"`
	Files           bool `json:"files"`
}

func (m *AIModel) IsFree() bool {
	return m.PromptPrice.IsZero() && m.CompletionPrice.IsZero()
}
