package main

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adscout/internal/analysis"
	"github.com/sells-group/adscout/internal/estimate"
	"github.com/sells-group/adscout/internal/history"
	"github.com/sells-group/adscout/internal/plan"
	"github.com/sells-group/adscout/internal/providers"
	"github.com/sells-group/adscout/internal/quota"
	"github.com/sells-group/adscout/internal/store"
	"github.com/sells-group/adscout/internal/synthesis"
	anthropicpkg "github.com/sells-group/adscout/pkg/anthropic"
	"github.com/sells-group/adscout/pkg/dataforseo"
	"github.com/sells-group/adscout/pkg/firecrawl"
	"github.com/sells-group/adscout/pkg/google"
	sfpkg "github.com/sells-group/adscout/pkg/salesforce"
	"github.com/sells-group/adscout/pkg/serpapi"
)

// appEnv holds the initialized store and the two pipeline entry points
// shared by the analyze/plan/serve commands.
type appEnv struct {
	Store    store.Store
	Gate     *quota.Gate
	Analyzer *analysis.Analyzer
	Planner  *plan.Planner
}

// Close releases resources held by the environment.
func (env *appEnv) Close() {
	if env.Store != nil {
		_ = env.Store.Close()
	}
}

// initApp wires the store, API clients, and both pipeline stages.
// Optional capabilities (SERP snapshots, CRM history, website
// extraction, authoritative keywords, competitor discovery) are enabled
// only when configured; the pipeline degrades around the rest.
func initApp(ctx context.Context) (*appEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (ADSCOUT_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	engine := synthesis.NewEngine(
		anthropicpkg.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		synthesis.WithMaxTokens(cfg.Anthropic.MaxTokens),
	)

	var competitors providers.CompetitorProvider
	if cfg.Google.Key != "" {
		competitors = providers.NewPlacesCompetitorProvider(google.NewClient(cfg.Google.Key))
		zap.L().Info("google places competitor discovery enabled")
	} else {
		zap.L().Warn("ADSCOUT_GOOGLE_KEY not set, competitor discovery disabled")
	}

	var serp providers.SerpProvider
	if cfg.SerpAPI.Enabled && cfg.SerpAPI.Key != "" {
		opts := []serpapi.Option{}
		if cfg.SerpAPI.BaseURL != "" {
			opts = append(opts, serpapi.WithBaseURL(cfg.SerpAPI.BaseURL))
		}
		serp = providers.NewSerpAPIProvider(serpapi.NewClient(cfg.SerpAPI.Key, opts...))
		zap.L().Info("serp snapshot capability enabled")
	}

	var hist providers.HistoryProvider
	sfClient, err := initSalesforce()
	if err != nil {
		zap.L().Warn("salesforce init failed, deal history disabled", zap.Error(err))
	} else if sfClient != nil {
		hist = history.NewAggregator(sfClient, cfg.Analysis.LookbackMonths)
	}

	var website providers.WebsiteExtractor
	if cfg.Firecrawl.Key != "" {
		opts := []firecrawl.Option{}
		if cfg.Firecrawl.BaseURL != "" {
			opts = append(opts, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		}
		website = providers.NewFirecrawlExtractor(
			firecrawl.NewClient(cfg.Firecrawl.Key, opts...),
			time.Duration(cfg.Analysis.ExtractionTimeoutSecs)*time.Second,
		)
	}

	interp, err := estimate.NewInterpolator()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	var primary providers.KeywordProvider
	if cfg.DataForSEO.Login != "" {
		opts := []dataforseo.Option{}
		if cfg.DataForSEO.BaseURL != "" {
			opts = append(opts, dataforseo.WithBaseURL(cfg.DataForSEO.BaseURL))
		}
		primary = providers.NewDataForSEOKeywordProvider(dataforseo.NewClient(cfg.DataForSEO.Login, cfg.DataForSEO.Password, opts...))
		zap.L().Info("dataforseo keyword source enabled")
	} else {
		zap.L().Warn("ADSCOUT_DATAFORSEO_LOGIN not set, using estimated keyword figures")
	}
	keywords := providers.NewFallbackKeywordProvider(primary, providers.NewEstimatorKeywordProvider(interp))

	gate := quota.NewGate(st, cfg.Quota.MonthlyLimit)
	ledger := quota.NewLedger(st)

	analyzer := analysis.New(analysis.Options{
		Gate:          gate,
		Ledger:        ledger,
		Store:         st,
		Engine:        engine,
		Competitors:   competitors,
		Serp:          serp,
		History:       hist,
		Website:       website,
		Keywords:      keywords,
		BranchTimeout: time.Duration(cfg.Analysis.BranchTimeoutSecs) * time.Second,
	})
	planner := plan.NewPlanner(st, engine, ledger)

	return &appEnv{Store: st, Gate: gate, Analyzer: analyzer, Planner: planner}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "adscout.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initSalesforce returns (nil, nil) when the integration is simply not
// configured; a configured-but-broken integration is an error.
func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, nil
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	var opts []sfpkg.ClientOption
	if cfg.Salesforce.RateRPS > 0 {
		opts = append(opts, sfpkg.WithRateLimit(cfg.Salesforce.RateRPS))
	}
	return sfpkg.NewClient(sf, opts...), nil
}
