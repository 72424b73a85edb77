package synthesis

import (
	"math"

	"github.com/sells-group/adscout/internal/model"
)

// Daily-budget band multipliers applied to the mean CPC. A contractor
// buying 8–20 clicks a day is the planning baseline.
const (
	budgetBandLowClicks  = 8
	budgetBandHighClicks = 20
)

// NumericGuidance is the explicitly computed numeric envelope handed to
// the reasoning engine so it never has to derive aggregates itself.
type NumericGuidance struct {
	MeanCPC         float64 `json:"mean_cpc"`
	MinCPC          float64 `json:"min_cpc"`
	MaxCPC          float64 `json:"max_cpc"`
	DailyBudgetLow  float64 `json:"daily_budget_low"`
	DailyBudgetHigh float64 `json:"daily_budget_high"`
}

// ComputeGuidance aggregates keyword rows into a guidance envelope.
// Zero-CPC rows are ignored; an all-zero set yields a zero envelope.
func ComputeGuidance(keywords []model.KeywordDatum) NumericGuidance {
	var g NumericGuidance
	var sum float64
	var n int
	for _, k := range keywords {
		if k.AvgCPC <= 0 {
			continue
		}
		if n == 0 {
			g.MinCPC, g.MaxCPC = k.AvgCPC, k.AvgCPC
		}
		g.MinCPC = math.Min(g.MinCPC, k.AvgCPC)
		g.MaxCPC = math.Max(g.MaxCPC, k.AvgCPC)
		sum += k.AvgCPC
		n++
	}
	if n == 0 {
		return g
	}
	g.MeanCPC = roundCents(sum / float64(n))
	g.DailyBudgetLow = roundCents(g.MeanCPC * budgetBandLowClicks)
	g.DailyBudgetHigh = roundCents(g.MeanCPC * budgetBandHighClicks)
	return g
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// AnalysisInput is the aggregated payload for analysis synthesis.
type AnalysisInput struct {
	Request                  model.AnalysisRequest      `json:"request"`
	Keywords                 []model.KeywordDatum       `json:"keywords"`
	HasAuthoritativeKeywords bool                       `json:"has_authoritative_keywords"`
	Competitors              []model.CompetitorRecord   `json:"competitors,omitempty"`
	SearchSnapshots          []*model.SearchSnapshot    `json:"search_snapshots,omitempty"`
	History                  *model.HistoricalSnapshot  `json:"history,omitempty"`
	Website                  *model.WebsiteSummary      `json:"website,omitempty"`
	Guidance                 NumericGuidance            `json:"guidance"`
}

// PlanInput reduces a stored analysis plus user selections into the plan
// synthesis payload. Only the fields the planner needs are carried.
type PlanInput struct {
	Opportunities []model.ServiceOpportunity `json:"opportunities"`
	TargetCities  []model.TargetCity         `json:"target_cities,omitempty"`
	Overview      model.MarketOverview       `json:"overview"`
	Selections    model.PlanSelections       `json:"selections"`
}

// NewPlanInput projects an analysis onto the user's selections.
// Opportunities for unselected services are dropped.
func NewPlanInput(analysis *model.MarketAnalysisResult, sel model.PlanSelections) PlanInput {
	in := PlanInput{
		Overview:     analysis.Overview,
		TargetCities: analysis.TargetCities,
		Selections:   sel,
	}
	selected := make(map[string]bool, len(sel.Services))
	for _, s := range sel.Services {
		selected[s] = true
	}
	for _, op := range analysis.Opportunities {
		if selected[op.Service] {
			in.Opportunities = append(in.Opportunities, op)
		}
	}
	return in
}
