// Package analysis runs the market analysis pipeline: quota gate, a
// concurrent fan-out over the data providers, keyword estimation seeded
// by competitor density, synthesis, and persistence.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/adscout/internal/estimate"
	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/internal/providers"
	"github.com/sells-group/adscout/internal/quota"
	"github.com/sells-group/adscout/internal/store"
	"github.com/sells-group/adscout/internal/synthesis"
)

// DefaultBranchTimeout bounds each data-gathering branch. The website
// extractor carries its own shorter deadline.
const DefaultBranchTimeout = 30 * time.Second

// Synthesizer is the reasoning-engine boundary the analyzer depends on.
type Synthesizer interface {
	Analysis(ctx context.Context, in synthesis.AnalysisInput) (*model.MarketAnalysisResult, error)
}

// Analyzer orchestrates one market analysis end to end.
type Analyzer struct {
	gate   *quota.Gate
	ledger *quota.Ledger
	store  store.Store
	engine Synthesizer

	competitors providers.CompetitorProvider
	serp        providers.SerpProvider // nil when the capability is absent
	history     providers.HistoryProvider
	website     providers.WebsiteExtractor
	keywords    providers.KeywordProvider

	branchTimeout time.Duration
}

// Options configures an Analyzer. Serp may be nil: the snapshot branch
// simply does not run. History and Website may be nil for the same reason.
type Options struct {
	Gate          *quota.Gate
	Ledger        *quota.Ledger
	Store         store.Store
	Engine        Synthesizer
	Competitors   providers.CompetitorProvider
	Serp          providers.SerpProvider
	History       providers.HistoryProvider
	Website       providers.WebsiteExtractor
	Keywords      providers.KeywordProvider
	BranchTimeout time.Duration
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	timeout := opts.BranchTimeout
	if timeout <= 0 {
		timeout = DefaultBranchTimeout
	}
	return &Analyzer{
		gate:          opts.Gate,
		ledger:        opts.Ledger,
		store:         opts.Store,
		engine:        opts.Engine,
		competitors:   opts.Competitors,
		serp:          opts.Serp,
		history:       opts.History,
		website:       opts.Website,
		keywords:      opts.Keywords,
		branchTimeout: timeout,
	}
}

// gathered holds whatever the fan-out managed to collect. Every field
// may be empty; the pipeline proceeds regardless.
type gathered struct {
	competitors []model.CompetitorRecord
	serp        *model.SearchSnapshot
	history     *model.HistoricalSnapshot
	website     *model.WebsiteSummary
}

// Run executes the full pipeline for one request. Only three failures
// are fatal: quota denial, a malformed synthesis response, and the
// analysis write. Everything else degrades.
func (a *Analyzer) Run(ctx context.Context, req model.AnalysisRequest) (*model.MarketAnalysisResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("account_id", req.AccountID),
		zap.String("zip", req.ZipCode),
	)

	if _, err := a.gate.Check(ctx, req.AccountID); err != nil {
		return nil, err
	}

	data := a.gather(ctx, req, log)

	// Keyword estimation runs after the join: competitor density feeds
	// the interpolation fallback.
	factor := estimate.FactorFromCompetitors(data.competitors)
	keywordRes := a.keywordData(ctx, req, factor, log)

	in := synthesis.AnalysisInput{
		Request:                  req,
		Keywords:                 keywordRes.Data,
		HasAuthoritativeKeywords: keywordRes.Source == providers.SourceDataForSEO && len(keywordRes.Data) > 0,
		Competitors:              data.competitors,
		History:                  data.history,
		Website:                  data.website,
		Guidance:                 synthesis.ComputeGuidance(keywordRes.Data),
	}
	if data.serp != nil {
		in.SearchSnapshots = []*model.SearchSnapshot{data.serp}
	}

	result, err := a.engine.Analysis(ctx, in)
	if err != nil {
		return nil, err
	}
	result.DataSourcesUsed = sourcesUsed(data, keywordRes)

	if err := a.store.SaveAnalysis(ctx, req, result); err != nil {
		return nil, eris.Wrap(err, "analysis: save result")
	}

	// Keyword rows and the ledger entry are best-effort relative to the
	// already-persisted analysis.
	if err := a.store.SaveKeywordRows(ctx, result.ID, keywordRes.Data); err != nil {
		log.Warn("analysis: keyword row write failed", zap.String("analysis_id", result.ID), zap.Error(err))
	}
	a.ledger.Record(ctx, req.AccountID, req.UserID, model.EventMarketAnalysis, map[string]any{
		"analysis_id":  result.ID,
		"data_sources": result.DataSourcesUsed,
	})

	log.Info("analysis complete",
		zap.String("analysis_id", result.ID),
		zap.Strings("data_sources", result.DataSourcesUsed),
		zap.Int("keyword_rows", len(keywordRes.Data)),
		zap.Int("competitors", len(data.competitors)),
	)
	return result, nil
}

// gather fans out the four independent branches. Each one degrades to
// its zero value on error or timeout; no branch can fail the analysis.
func (a *Analyzer) gather(ctx context.Context, req model.AnalysisRequest, log *zap.Logger) gathered {
	var data gathered
	g, gctx := errgroup.WithContext(ctx)

	primaryService := req.Services[0]

	if a.competitors != nil {
		g.Go(func() error {
			bctx, cancel := context.WithTimeout(gctx, a.branchTimeout)
			defer cancel()
			records, err := a.competitors.GetCompetitors(bctx, primaryService, req.ZipCode, req.Radius())
			if err != nil {
				log.Warn("analysis: competitor branch degraded", zap.Error(err))
				return nil
			}
			data.competitors = records
			return nil
		})
	}

	if a.serp != nil {
		g.Go(func() error {
			bctx, cancel := context.WithTimeout(gctx, a.branchTimeout)
			defer cancel()
			query := fmt.Sprintf("%s %s", primaryService, req.ZipCode)
			snap, err := a.serp.GetSerpResults(bctx, query, req.ZipCode)
			if err != nil {
				log.Warn("analysis: serp branch degraded", zap.Error(err))
				return nil
			}
			data.serp = snap
			return nil
		})
	}

	if a.history != nil {
		g.Go(func() error {
			bctx, cancel := context.WithTimeout(gctx, a.branchTimeout)
			defer cancel()
			snap, err := a.history.Snapshot(bctx, req.AccountID)
			if err != nil {
				log.Warn("analysis: history branch degraded", zap.Error(err))
				return nil
			}
			data.history = snap
			return nil
		})
	}

	if a.website != nil && req.WebsiteURL != "" {
		g.Go(func() error {
			// The extractor applies its own fixed short deadline.
			summary, err := a.website.Extract(gctx, req.WebsiteURL)
			if err != nil {
				log.Warn("analysis: website branch degraded", zap.String("url", req.WebsiteURL), zap.Error(err))
				return nil
			}
			data.website = summary
			return nil
		})
	}

	g.Wait() //nolint:errcheck // branches never return errors
	return data
}

// keywordData runs the keyword branch. Even this degrades: a result with
// no keyword rows still synthesizes.
func (a *Analyzer) keywordData(ctx context.Context, req model.AnalysisRequest, factor float64, log *zap.Logger) providers.KeywordResult {
	bctx, cancel := context.WithTimeout(ctx, a.branchTimeout)
	defer cancel()

	res, err := a.keywords.GetKeywordData(bctx, providers.KeywordQuery{
		Services:     req.Services,
		Cities:       req.TargetCities,
		MarketFactor: factor,
	})
	if err != nil {
		log.Warn("analysis: keyword branch degraded", zap.Error(err))
		return providers.KeywordResult{}
	}
	return res
}

// sourcesUsed lists the providers that actually contributed data, plus
// the reasoning engine. Failed or empty branches are omitted — the
// provenance list is honest.
func sourcesUsed(data gathered, kw providers.KeywordResult) []string {
	var sources []string
	if len(kw.Data) > 0 && kw.Source != "" {
		sources = append(sources, kw.Source)
	}
	if len(data.competitors) > 0 {
		sources = append(sources, providers.SourcePlaces)
	}
	if data.serp != nil {
		sources = append(sources, providers.SourceSerpAPI)
	}
	if data.history != nil {
		sources = append(sources, providers.SourceSalesforce)
	}
	if data.website != nil {
		sources = append(sources, providers.SourceFirecrawl)
	}
	return append(sources, providers.SourceAnthropic)
}

func validateRequest(req model.AnalysisRequest) error {
	if req.AccountID == "" {
		return eris.Wrap(model.ErrInvalidRequest, "analysis: account id required")
	}
	if req.ZipCode == "" {
		return eris.Wrap(model.ErrInvalidRequest, "analysis: zip code required")
	}
	if len(req.Services) == 0 {
		return eris.Wrap(model.ErrInvalidRequest, "analysis: at least one service required")
	}
	return nil
}
