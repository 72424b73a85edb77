// Package store persists analyses, campaign plans, and the usage ledger.
// Two backends: Postgres (pgxpool) for deployments, SQLite for local
// development.
package store

import (
	"context"
	"time"

	"github.com/sells-group/adscout/internal/model"
)

// AnalysisFilter specifies criteria for listing analyses. AccountID is
// mandatory; every read is account-scoped.
type AnalysisFilter struct {
	AccountID string `json:"account_id"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline.
// All reads are scoped to an owning account: a cross-account id is
// indistinguishable from a missing one (model.ErrNotFound either way).
type Store interface {
	// Analyses
	SaveAnalysis(ctx context.Context, request model.AnalysisRequest, result *model.MarketAnalysisResult) error
	GetAnalysis(ctx context.Context, id, accountID string) (*model.MarketAnalysisResult, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.MarketAnalysisResult, error)
	SaveKeywordRows(ctx context.Context, analysisID string, rows []model.KeywordDatum) error

	// Plans
	SavePlan(ctx context.Context, plan *model.CampaignPlan) error
	GetPlan(ctx context.Context, id, accountID string) (*model.CampaignPlan, error)

	// Usage ledger
	LogUsageEvent(ctx context.Context, event model.UsageEvent) error
	CountUsageEvents(ctx context.Context, accountID string, eventType model.UsageEventType, since time.Time) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
