package services

import (
	"github.com/careerdesk/careerdesk-backend/internal/config"
)

// CostModel is the blended multi-provider estimate for a query window,
// extrapolated to a monthly figure.
type CostModel struct {
	RangeDays    int     `json:"range_days"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	OpenAIShare  float64 `json:"openai_share"`

	OpenAICost    float64 `json:"openai_cost"`
	AnthropicCost float64 `json:"anthropic_cost"`
	RangeCost     float64 `json:"range_cost"`

	MonthlyTokenCost     float64 `json:"monthly_token_cost"`
	InfraMonthlyCost     float64 `json:"infra_monthly_cost"`
	TotalMonthlyEstimate float64 `json:"total_monthly_estimate"`
}

// CostEstimator is deterministic and side-effect-free; all rates and shares
// come from configuration.
type CostEstimator interface {
	Estimate(inputTokens, outputTokens int64, rangeDays int) CostModel
	// PerUserCost applies the blended per-token rates to one user's own
	// totals, instead of reapportioning the aggregate.
	PerUserCost(inputTokens, outputTokens int64) float64
}

type costEstimator struct {
	share     float64
	openai    config.Pricing
	anthropic config.Pricing
	infra     config.InfraCosts
}

func NewCostEstimator(cfg *config.Config) CostEstimator {
	return &costEstimator{
		share:     cfg.OpenAIShare,
		openai:    cfg.OpenAIPricing,
		anthropic: cfg.AnthropicPricing,
		infra:     cfg.Infra,
	}
}

func (ce *costEstimator) Estimate(inputTokens, outputTokens int64, rangeDays int) CostModel {
	if rangeDays < 1 {
		rangeDays = 1
	}

	in := float64(inputTokens)
	out := float64(outputTokens)
	anthShare := 1 - ce.share

	openaiCost := ce.share * (in/1000*ce.openai.InputPer1K + out/1000*ce.openai.OutputPer1K)
	anthropicCost := anthShare * (in/1000*ce.anthropic.InputPer1K + out/1000*ce.anthropic.OutputPer1K)
	rangeCost := openaiCost + anthropicCost

	monthly := rangeCost * 30 / float64(rangeDays)
	infra := ce.infra.Total()

	return CostModel{
		RangeDays:            rangeDays,
		InputTokens:          inputTokens,
		OutputTokens:         outputTokens,
		OpenAIShare:          ce.share,
		OpenAICost:           openaiCost,
		AnthropicCost:        anthropicCost,
		RangeCost:            rangeCost,
		MonthlyTokenCost:     monthly,
		InfraMonthlyCost:     infra,
		TotalMonthlyEstimate: monthly + infra,
	}
}

func (ce *costEstimator) PerUserCost(inputTokens, outputTokens int64) float64 {
	anthShare := 1 - ce.share
	inPer1K := ce.share*ce.openai.InputPer1K + anthShare*ce.anthropic.InputPer1K
	outPer1K := ce.share*ce.openai.OutputPer1K + anthShare*ce.anthropic.OutputPer1K
	return float64(inputTokens)/1000*inPer1K + float64(outputTokens)/1000*outPer1K
}
