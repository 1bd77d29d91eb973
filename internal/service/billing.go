package service

import (
	"github.com/set-night/mindchat/internal/domain"
	"github.com/shopspring/decimal"
)

var perMillion = decimal.NewFromInt(1_000_000)

// CalculateCost prices a request from per-1M-token prices.
func CalculateCost(promptTokens, completionTokens int64, promptPrice, completionPrice decimal.Decimal) decimal.Decimal {
	promptCost := decimal.NewFromInt(promptTokens).Mul(promptPrice).Div(perMillion)
	completionCost := decimal.NewFromInt(completionTokens).Mul(completionPrice).Div(perMillion)
	return promptCost.Add(completionCost)
}

// CostForModel is CalculateCost with the model's prices. A nil model is free.
func CostForModel(model *domain.AIModel, usage Usage) decimal.Decimal {
	if model == nil || model.IsFree() {
		return decimal.Zero
	}
	return CalculateCost(usage.PromptTokens, usage.CompletionTokens, model.PromptPrice, model.CompletionPrice)
}
