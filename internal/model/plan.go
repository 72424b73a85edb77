package model

import "time"

// MatchType is a keyword match type in a campaign.
type MatchType string

const (
	MatchExact  MatchType = "exact"
	MatchPhrase MatchType = "phrase"
	MatchBroad  MatchType = "broad"
)

// CampaignKeyword is a keyword plus its match type inside a campaign.
type CampaignKeyword struct {
	Keyword   string    `json:"keyword"`
	MatchType MatchType `json:"match_type"`
}

// AdCopy is generated creative for a campaign.
type AdCopy struct {
	Headlines    []string `json:"headlines"`
	Descriptions []string `json:"descriptions"`
}

// Campaign is one per-service campaign inside a plan.
type Campaign struct {
	Name             string            `json:"name"`
	Service          string            `json:"service"`
	TargetCities     []string          `json:"target_cities,omitempty"`
	DailyBudget      float64           `json:"daily_budget"`
	Keywords         []CampaignKeyword `json:"keywords"`
	NegativeKeywords []string          `json:"negative_keywords,omitempty"`
	AdCopy           AdCopy            `json:"ad_copy"`
	EstimatedClicks  int               `json:"estimated_clicks"`
	EstimatedCPC     float64           `json:"estimated_cpc"`
	EstimatedCost    float64           `json:"estimated_cost"`
}

// CampaignPlan is the persisted output of the plan derivation stage.
// Each campaign's EstimatedCPC must equal the source analysis's average
// CPC for that service; see ConsistencyWarning.
type CampaignPlan struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"account_id"`
	AnalysisID  string     `json:"analysis_id"`
	Campaigns   []Campaign `json:"campaigns"`
	DailyBudget float64    `json:"daily_budget"`
	HardCap     float64    `json:"hard_cap"`
	Summary     string     `json:"summary"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// PlanSelections carries the user's choices into plan derivation.
type PlanSelections struct {
	Services     []string `json:"services"`
	TargetCities []string `json:"target_cities,omitempty"`
	DailyBudget  float64  `json:"daily_budget"`
	HardCap      float64  `json:"hard_cap"`
	BusinessName string   `json:"business_name,omitempty"`
	Phone        string   `json:"phone,omitempty"`
}

// ConsistencyWarning flags a campaign whose estimated CPC drifted from the
// source analysis. A data-quality signal for the caller, not a failure.
type ConsistencyWarning struct {
	Service     string  `json:"service"`
	PlanCPC     float64 `json:"plan_cpc"`
	AnalysisCPC float64 `json:"analysis_cpc"`
}

// PlanResult bundles a derived plan with any consistency warnings.
type PlanResult struct {
	Plan     *CampaignPlan        `json:"plan"`
	Warnings []ConsistencyWarning `json:"warnings,omitempty"`
}
