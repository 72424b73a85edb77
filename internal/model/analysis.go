package model

import "time"

// DefaultRadiusMiles is the competitor search radius applied when a
// request does not specify one.
const DefaultRadiusMiles = 25

// AnalysisRequest describes a single market analysis job. Immutable once
// accepted by the orchestrator.
type AnalysisRequest struct {
	AccountID    string   `json:"account_id"`
	UserID       string   `json:"user_id"`
	ZipCode      string   `json:"zip_code"`
	Services     []string `json:"services"`
	TargetCities []string `json:"target_cities,omitempty"`
	RadiusMiles  int      `json:"radius_miles,omitempty"`
	WebsiteURL   string   `json:"website_url,omitempty"`
}

// Radius returns the effective competitor search radius.
func (r AnalysisRequest) Radius() int {
	if r.RadiusMiles <= 0 {
		return DefaultRadiusMiles
	}
	return r.RadiusMiles
}

// CompetitionTier buckets market competitiveness.
type CompetitionTier string

const (
	CompetitionLow    CompetitionTier = "low"
	CompetitionMedium CompetitionTier = "medium"
	CompetitionHigh   CompetitionTier = "high"
)

// KeywordDatum is a single keyword estimate. Many per service; duplicates
// across base/city variants are expected and not deduplicated.
type KeywordDatum struct {
	Keyword       string          `json:"keyword"`
	MonthlyVolume int             `json:"monthly_volume"`
	AvgCPC        float64         `json:"avg_cpc"`
	Competition   CompetitionTier `json:"competition"`
	Service       string          `json:"service"`
	City          string          `json:"city,omitempty"`
}

// AdCopySnapshot captures a competitor's observed ad creative.
type AdCopySnapshot struct {
	Headlines    []string `json:"headlines,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
}

// CompetitorRecord is one local competitor listing. Lists are capped at
// MaxCompetitors and ordered by review count descending — review volume is
// the proxy for market establishment.
type CompetitorRecord struct {
	ExternalID  string          `json:"external_id"`
	Name        string          `json:"name"`
	Rating      float64         `json:"rating,omitempty"`
	ReviewCount int             `json:"review_count,omitempty"`
	Address     string          `json:"address,omitempty"`
	Latitude    float64         `json:"latitude,omitempty"`
	Longitude   float64         `json:"longitude,omitempty"`
	AdCopy      *AdCopySnapshot `json:"ad_copy,omitempty"`
	Insight     string          `json:"insight,omitempty"`
}

// MaxCompetitors bounds the competitor list per analysis.
const MaxCompetitors = 20

// SearchAd is a paid result observed in a search snapshot.
type SearchAd struct {
	Position    int    `json:"position"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DisplayURL  string `json:"display_url,omitempty"`
	Advertiser  string `json:"advertiser,omitempty"`
}

// SearchResult is an organic result observed in a search snapshot.
type SearchResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet,omitempty"`
}

// SearchSnapshot is one captured results page for a query. Nil whenever
// the capability is disabled or unconfigured — a legitimate state.
type SearchSnapshot struct {
	Query     string         `json:"query"`
	Location  string         `json:"location,omitempty"`
	Ads       []SearchAd     `json:"ads,omitempty"`
	Organic   []SearchResult `json:"organic,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// WebsiteSummary is the extracted content of the requester's own site.
type WebsiteSummary struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

// ServiceHistory is the per-service slice of a HistoricalSnapshot.
type ServiceHistory struct {
	Service     string  `json:"service"`
	DealCount   int     `json:"deal_count"`
	WinRate     float64 `json:"win_rate"`
	AvgDealSize float64 `json:"avg_deal_size"`
	Revenue     float64 `json:"revenue"`
}

// CityDealCount is one entry of a snapshot's top-cities ranking.
type CityDealCount struct {
	City      string `json:"city"`
	DealCount int    `json:"deal_count"`
}

// HistoricalSnapshot aggregates CRM deal performance over a rolling
// lookback window. Absent entirely (nil) when the account has no
// historical deals — an expected state, not an error.
type HistoricalSnapshot struct {
	TotalDeals     int              `json:"total_deals"`
	WonDeals       int              `json:"won_deals"`
	TotalRevenue   float64          `json:"total_revenue"`
	AvgRevenue     float64          `json:"avg_revenue"`
	ByService      []ServiceHistory `json:"by_service,omitempty"`
	TopCities      []CityDealCount  `json:"top_cities,omitempty"`
	LookbackMonths int              `json:"lookback_months"`
}

// MaxTopCities bounds the top-cities ranking in a HistoricalSnapshot.
const MaxTopCities = 10

// MarketOverview is the narrative head of an analysis result.
type MarketOverview struct {
	Summary         string          `json:"summary"`
	CompetitionTier CompetitionTier `json:"competition_tier"`
	MarketInsight   string          `json:"market_insight"`
	WebsiteCritique string          `json:"website_critique,omitempty"`
}

// ServiceOpportunity ranks one service's advertising potential.
type ServiceOpportunity struct {
	Service        string          `json:"service"`
	Rank           int             `json:"rank"`
	MonthlyVolume  int             `json:"monthly_volume"`
	AvgCPC         float64         `json:"avg_cpc"`
	Competition    CompetitionTier `json:"competition"`
	Rationale      string          `json:"rationale,omitempty"`
	EstMonthlyCost float64         `json:"est_monthly_cost,omitempty"`
}

// TargetCity ranks one recommended city.
type TargetCity struct {
	City        string          `json:"city"`
	Rank        int             `json:"rank"`
	Demand      string          `json:"demand,omitempty"`
	Competition CompetitionTier `json:"competition,omitempty"`
	Rationale   string          `json:"rationale,omitempty"`
}

// ROIProjection is an optional return-on-spend estimate.
type ROIProjection struct {
	MonthlyRevenue float64 `json:"monthly_revenue"`
	MonthlyCost    float64 `json:"monthly_cost"`
	Ratio          float64 `json:"ratio"`
}

// BudgetRecommendation is the numeric core of an analysis.
type BudgetRecommendation struct {
	DailyBudget     float64        `json:"daily_budget"`
	HardCap         float64        `json:"hard_cap"`
	ProjectedClicks int            `json:"projected_clicks"`
	ProjectedCalls  int            `json:"projected_calls"`
	ProjectedCost   float64        `json:"projected_cost"`
	ROI             *ROIProjection `json:"roi,omitempty"`
}

// MarketAnalysisResult is the persisted output of the analysis stage.
// Immutable after creation; there is no update path.
type MarketAnalysisResult struct {
	ID              string               `json:"id"`
	AccountID       string               `json:"account_id"`
	Overview        MarketOverview       `json:"overview"`
	Opportunities   []ServiceOpportunity `json:"opportunities"`
	Competitors     []CompetitorRecord   `json:"competitors,omitempty"`
	TargetCities    []TargetCity         `json:"target_cities,omitempty"`
	Budget          BudgetRecommendation `json:"budget"`
	DataSourcesUsed []string             `json:"data_sources_used"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// OpportunityFor returns the opportunity for a service, or nil.
func (r *MarketAnalysisResult) OpportunityFor(service string) *ServiceOpportunity {
	for i := range r.Opportunities {
		if r.Opportunities[i].Service == service {
			return &r.Opportunities[i]
		}
	}
	return nil
}
