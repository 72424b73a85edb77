package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adscout/internal/estimate"
	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/internal/providers"
	"github.com/sells-group/adscout/internal/quota"
	"github.com/sells-group/adscout/internal/store"
	"github.com/sells-group/adscout/internal/synthesis"
)

// --- fakes ---

type fakeCounter struct {
	count int
	err   error
}

func (f *fakeCounter) CountUsageEvents(context.Context, string, model.UsageEventType, time.Time) (int, error) {
	return f.count, f.err
}

type fakeStore struct {
	savedRequest  *model.AnalysisRequest
	savedResult   *model.MarketAnalysisResult
	savedKeywords []model.KeywordDatum
	events        []model.UsageEvent
	saveErr       error
	keywordErr    error
}

func (f *fakeStore) SaveAnalysis(_ context.Context, req model.AnalysisRequest, result *model.MarketAnalysisResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if result.ID == "" {
		result.ID = "analysis-test"
	}
	f.savedRequest = &req
	f.savedResult = result
	return nil
}

func (f *fakeStore) GetAnalysis(context.Context, string, string) (*model.MarketAnalysisResult, error) {
	return nil, model.ErrNotFound
}

func (f *fakeStore) ListAnalyses(context.Context, store.AnalysisFilter) ([]model.MarketAnalysisResult, error) {
	return nil, nil
}

func (f *fakeStore) SaveKeywordRows(_ context.Context, _ string, rows []model.KeywordDatum) error {
	if f.keywordErr != nil {
		return f.keywordErr
	}
	f.savedKeywords = rows
	return nil
}

func (f *fakeStore) SavePlan(context.Context, *model.CampaignPlan) error { return nil }

func (f *fakeStore) GetPlan(context.Context, string, string) (*model.CampaignPlan, error) {
	return nil, model.ErrNotFound
}

func (f *fakeStore) LogUsageEvent(_ context.Context, event model.UsageEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) CountUsageEvents(context.Context, string, model.UsageEventType, time.Time) (int, error) {
	return 0, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

type fakeEngine struct {
	lastInput synthesis.AnalysisInput
	err       error
	calls     int
}

func (f *fakeEngine) Analysis(_ context.Context, in synthesis.AnalysisInput) (*model.MarketAnalysisResult, error) {
	f.lastInput = in
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &model.MarketAnalysisResult{
		Overview: model.MarketOverview{Summary: "s", CompetitionTier: model.CompetitionLow, MarketInsight: "i"},
		Opportunities: []model.ServiceOpportunity{
			{Service: in.Request.Services[0], Rank: 1, Competition: model.CompetitionLow},
		},
	}, nil
}

type fakeCompetitors struct {
	records []model.CompetitorRecord
	err     error
}

func (f *fakeCompetitors) GetCompetitors(context.Context, string, string, int) ([]model.CompetitorRecord, error) {
	return f.records, f.err
}

type fakeHistory struct {
	snap *model.HistoricalSnapshot
	err  error
}

func (f *fakeHistory) Snapshot(context.Context, string) (*model.HistoricalSnapshot, error) {
	return f.snap, f.err
}

type fakeSerp struct {
	snap *model.SearchSnapshot
	err  error
}

func (f *fakeSerp) GetSerpResults(context.Context, string, string) (*model.SearchSnapshot, error) {
	return f.snap, f.err
}

type fakeExtractor struct {
	summary *model.WebsiteSummary
	err     error
}

func (f *fakeExtractor) Extract(context.Context, string) (*model.WebsiteSummary, error) {
	return f.summary, f.err
}

// --- helpers ---

func estimatorKeywords(t *testing.T) providers.KeywordProvider {
	t.Helper()
	interp, err := estimate.NewInterpolator()
	require.NoError(t, err)
	return providers.NewFallbackKeywordProvider(nil, providers.NewEstimatorKeywordProvider(interp))
}

func newAnalyzer(t *testing.T, st *fakeStore, engine *fakeEngine, opts Options) *Analyzer {
	t.Helper()
	if opts.Gate == nil {
		opts.Gate = quota.NewGate(&fakeCounter{count: 0}, 10)
	}
	opts.Ledger = quota.NewLedger(st)
	opts.Store = st
	opts.Engine = engine
	if opts.Competitors == nil {
		opts.Competitors = &fakeCompetitors{}
	}
	if opts.Keywords == nil {
		opts.Keywords = estimatorKeywords(t)
	}
	return New(opts)
}

func paintingRequest() model.AnalysisRequest {
	return model.AnalysisRequest{
		AccountID: "acct-1",
		UserID:    "user-1",
		ZipCode:   "92101",
		Services:  []string{"interior painting"},
	}
}

// --- tests ---

func TestRun_AllBranchesEmptyStillProducesResult(t *testing.T) {
	// No serp capability, no history, no website, zero competitors, no
	// authoritative keyword source: the estimator interpolates at f = 0
	// and the provenance list names only it and the engine.
	st := &fakeStore{}
	engine := &fakeEngine{}
	an := newAnalyzer(t, st, engine, Options{})

	result, err := an.Run(context.Background(), paintingRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []string{providers.SourceEstimator, providers.SourceAnthropic}, result.DataSourcesUsed)
	assert.False(t, engine.lastInput.HasAuthoritativeKeywords)

	// f = 0 interpolates at the bottom of the painting range.
	require.NotEmpty(t, engine.lastInput.Keywords)
	base := engine.lastInput.Keywords[0]
	assert.Equal(t, "interior painting", base.Keyword)
	assert.Equal(t, 3.50, base.AvgCPC)
	assert.Equal(t, 320, base.MonthlyVolume)

	require.NotNil(t, st.savedResult)
	assert.Equal(t, st.savedResult.ID, result.ID)
}

func TestRun_ProviderFailuresDegrade(t *testing.T) {
	st := &fakeStore{}
	engine := &fakeEngine{}
	an := newAnalyzer(t, st, engine, Options{
		Competitors: &fakeCompetitors{err: eris.New("places 500")},
		Serp:        &fakeSerp{err: eris.New("serp 429")},
		History:     &fakeHistory{err: eris.New("sf down")},
		Website:     &fakeExtractor{err: eris.New("scrape timeout")},
	})

	req := paintingRequest()
	req.WebsiteURL = "https://example.com"

	result, err := an.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{providers.SourceEstimator, providers.SourceAnthropic}, result.DataSourcesUsed)
	assert.Empty(t, engine.lastInput.Competitors)
	assert.Nil(t, engine.lastInput.History)
	assert.Nil(t, engine.lastInput.Website)
	assert.Empty(t, engine.lastInput.SearchSnapshots)
}

func TestRun_SucceededBranchesAreListed(t *testing.T) {
	st := &fakeStore{}
	engine := &fakeEngine{}
	an := newAnalyzer(t, st, engine, Options{
		Competitors: &fakeCompetitors{records: []model.CompetitorRecord{
			{ExternalID: "p1", Name: "Ace Painting", ReviewCount: 210, Rating: 4.7},
		}},
		Serp:    &fakeSerp{snap: &model.SearchSnapshot{Query: "interior painting 92101"}},
		History: &fakeHistory{snap: &model.HistoricalSnapshot{TotalDeals: 4, WonDeals: 2}},
		Website: &fakeExtractor{summary: &model.WebsiteSummary{URL: "https://example.com", Markdown: "# Hi"}},
	})

	req := paintingRequest()
	req.WebsiteURL = "https://example.com"

	result, err := an.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{
		providers.SourceEstimator,
		providers.SourcePlaces,
		providers.SourceSerpAPI,
		providers.SourceSalesforce,
		providers.SourceFirecrawl,
		providers.SourceAnthropic,
	}, result.DataSourcesUsed)

	// Competitor density lifted the market factor above zero.
	require.NotEmpty(t, engine.lastInput.Keywords)
	assert.Greater(t, engine.lastInput.Keywords[0].AvgCPC, 3.50)
}

func TestRun_QuotaDenialIsFatal(t *testing.T) {
	st := &fakeStore{}
	engine := &fakeEngine{}
	an := newAnalyzer(t, st, engine, Options{
		Gate: quota.NewGate(&fakeCounter{count: 10}, 10),
	})

	_, err := an.Run(context.Background(), paintingRequest())
	require.Error(t, err)

	var quotaErr *model.QuotaError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, 0, quotaErr.Quota.Remaining)
	assert.Zero(t, engine.calls)
	assert.Nil(t, st.savedResult)
}

func TestRun_SynthesisFailureIsFatalAndNotPersisted(t *testing.T) {
	st := &fakeStore{}
	engine := &fakeEngine{err: &model.SynthesisError{Stage: "analysis", Err: eris.New("bad json")}}
	an := newAnalyzer(t, st, engine, Options{})

	_, err := an.Run(context.Background(), paintingRequest())
	require.Error(t, err)

	var synthErr *model.SynthesisError
	require.True(t, errors.As(err, &synthErr))
	assert.Nil(t, st.savedResult)
	assert.Empty(t, st.events)
}

func TestRun_SaveFailureIsFatal(t *testing.T) {
	st := &fakeStore{saveErr: eris.New("db down")}
	engine := &fakeEngine{}
	an := newAnalyzer(t, st, engine, Options{})

	_, err := an.Run(context.Background(), paintingRequest())
	require.Error(t, err)
	assert.Empty(t, st.events)
}

func TestRun_KeywordRowFailureIsBestEffort(t *testing.T) {
	st := &fakeStore{keywordErr: eris.New("copy failed")}
	engine := &fakeEngine{}
	an := newAnalyzer(t, st, engine, Options{})

	result, err := an.Run(context.Background(), paintingRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	// The ledger event is still written.
	require.Len(t, st.events, 1)
	assert.Equal(t, model.EventMarketAnalysis, st.events[0].EventType)
	assert.Equal(t, result.ID, st.events[0].Metadata["analysis_id"])
}

func TestRun_ValidatesRequest(t *testing.T) {
	st := &fakeStore{}
	an := newAnalyzer(t, st, &fakeEngine{}, Options{})

	cases := []model.AnalysisRequest{
		{UserID: "u", ZipCode: "92101", Services: []string{"roofing"}},
		{AccountID: "a", UserID: "u", Services: []string{"roofing"}},
		{AccountID: "a", UserID: "u", ZipCode: "92101"},
	}
	for _, req := range cases {
		_, err := an.Run(context.Background(), req)
		assert.ErrorIs(t, err, model.ErrInvalidRequest)
	}
}
