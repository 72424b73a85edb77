// Package providers defines the data-source capability interfaces the
// aggregation pipeline fans out to, and their concrete adapters. Every
// adapter returns a typed result or an error the orchestrator degrades
// to an empty value — no provider failure halts an analysis.
package providers

import (
	"context"

	"github.com/sells-group/adscout/internal/model"
)

// Data source names recorded in a result's provenance list.
const (
	SourceDataForSEO = "dataforseo"
	SourcePlaces     = "google_places"
	SourceSerpAPI    = "serpapi"
	SourceSalesforce = "salesforce"
	SourceFirecrawl  = "firecrawl"
	SourceEstimator  = "internal_estimator"
	SourceAnthropic  = "anthropic"
)

// KeywordQuery asks for keyword metrics for a service list. MarketFactor
// carries the competitor-density signal the estimation fallback
// interpolates at; authoritative providers ignore it.
type KeywordQuery struct {
	Services     []string
	Cities       []string
	Region       string
	MarketFactor float64
}

// KeywordResult is keyword data plus the provenance of where it came from.
type KeywordResult struct {
	Data   []model.KeywordDatum
	Source string
}

// KeywordProvider estimates keyword volume and CPC. Implementations must
// be safe to call with empty Cities and must return an empty result, not
// an error, when no data exists.
type KeywordProvider interface {
	GetKeywordData(ctx context.Context, q KeywordQuery) (KeywordResult, error)
}

// CompetitorProvider discovers local competitors around a zip code.
type CompetitorProvider interface {
	GetCompetitors(ctx context.Context, service, zip string, radiusMiles int) ([]model.CompetitorRecord, error)
}

// SerpProvider snapshots a search results page. The capability is decided
// at construction: a pipeline either holds a SerpProvider or holds nil.
type SerpProvider interface {
	GetSerpResults(ctx context.Context, query, location string) (*model.SearchSnapshot, error)
}

// WebsiteExtractor pulls readable content from the requester's site.
type WebsiteExtractor interface {
	Extract(ctx context.Context, url string) (*model.WebsiteSummary, error)
}

// HistoryProvider aggregates past deal performance for an account.
// A nil snapshot with a nil error means the account has no deal history.
type HistoryProvider interface {
	Snapshot(ctx context.Context, accountID string) (*model.HistoricalSnapshot, error)
}
