package services

import (
	"math"
	"testing"

	"github.com/careerdesk/careerdesk-backend/internal/config"
)

func testCostConfig() *config.Config {
	return &config.Config{
		OpenAIShare:      0.7,
		OpenAIPricing:    config.Pricing{InputPer1K: 0.00015, OutputPer1K: 0.0006},
		AnthropicPricing: config.Pricing{InputPer1K: 0.003, OutputPer1K: 0.015},
		Infra:            config.InfraCosts{Database: 25, Hosting: 20, Email: 10, Monitoring: 5},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEstimateZeroTokensIsInfraOnly(t *testing.T) {
	est := NewCostEstimator(testCostConfig())

	m := est.Estimate(0, 0, 30)
	if m.RangeCost != 0 {
		t.Fatalf("expected zero range cost, got %v", m.RangeCost)
	}
	if m.MonthlyTokenCost != 0 {
		t.Fatalf("expected zero monthly token cost, got %v", m.MonthlyTokenCost)
	}
	if !almostEqual(m.TotalMonthlyEstimate, 60) {
		t.Fatalf("expected monthly estimate to equal infra total 60, got %v", m.TotalMonthlyEstimate)
	}
}

func TestEstimateBlendedExactValue(t *testing.T) {
	est := NewCostEstimator(testCostConfig())

	// 1M input + 1M output tokens over 30 days.
	m := est.Estimate(1_000_000, 1_000_000, 30)

	wantOpenAI := 0.7 * (1000*0.00015 + 1000*0.0006)
	wantAnthropic := 0.3 * (1000*0.003 + 1000*0.015)
	if !almostEqual(m.OpenAICost, wantOpenAI) {
		t.Fatalf("openai cost: want %v, got %v", wantOpenAI, m.OpenAICost)
	}
	if !almostEqual(m.AnthropicCost, wantAnthropic) {
		t.Fatalf("anthropic cost: want %v, got %v", wantAnthropic, m.AnthropicCost)
	}
	if !almostEqual(m.RangeCost, wantOpenAI+wantAnthropic) {
		t.Fatalf("range cost: want %v, got %v", wantOpenAI+wantAnthropic, m.RangeCost)
	}
	// 30-day range extrapolates 1:1.
	if !almostEqual(m.MonthlyTokenCost, m.RangeCost) {
		t.Fatalf("monthly token cost: want %v, got %v", m.RangeCost, m.MonthlyTokenCost)
	}
	if !almostEqual(m.TotalMonthlyEstimate, m.MonthlyTokenCost+60) {
		t.Fatalf("total: want %v, got %v", m.MonthlyTokenCost+60, m.TotalMonthlyEstimate)
	}
}

func TestEstimateLinearInTokens(t *testing.T) {
	est := NewCostEstimator(testCostConfig())

	single := est.Estimate(123_456, 654_321, 14)
	double := est.Estimate(2*123_456, 2*654_321, 14)
	if !almostEqual(double.RangeCost, 2*single.RangeCost) {
		t.Fatalf("range cost not linear: 2*%v != %v", single.RangeCost, double.RangeCost)
	}
}

func TestEstimateExtrapolatesByRange(t *testing.T) {
	est := NewCostEstimator(testCostConfig())

	m := est.Estimate(500_000, 500_000, 15)
	if !almostEqual(m.MonthlyTokenCost, m.RangeCost*2) {
		t.Fatalf("15-day range should double: %v vs %v", m.RangeCost*2, m.MonthlyTokenCost)
	}

	clamped := est.Estimate(1000, 1000, 0)
	if clamped.RangeDays != 1 {
		t.Fatalf("rangeDays should clamp to 1, got %d", clamped.RangeDays)
	}
}

func TestPerUserCostMatchesBlendedRates(t *testing.T) {
	est := NewCostEstimator(testCostConfig())

	inPer1K := 0.7*0.00015 + 0.3*0.003
	outPer1K := 0.7*0.0006 + 0.3*0.015
	want := 100.0/1000*inPer1K + 200.0/1000*outPer1K
	if got := est.PerUserCost(100, 200); !almostEqual(got, want) {
		t.Fatalf("per-user cost: want %v, got %v", want, got)
	}
	if got := est.PerUserCost(0, 0); got != 0 {
		t.Fatalf("zero tokens should cost 0, got %v", got)
	}
}
