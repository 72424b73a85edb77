package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adscout/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_SaveAnalysis_AssignsIDAndTimestamp(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(pgxmock.AnyArg(), "acct-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	result := &model.MarketAnalysisResult{
		Overview: model.MarketOverview{Summary: "s", CompetitionTier: model.CompetitionLow},
	}
	req := model.AnalysisRequest{AccountID: "acct-1", ZipCode: "92101", Services: []string{"interior painting"}}

	err := st.SaveAnalysis(context.Background(), req, result)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "acct-1", result.AccountID)
	assert.False(t, result.GeneratedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetAnalysis_CrossAccountIsNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	// Account scoping is part of the query: a row owned by another
	// account never matches, so pgx reports no rows.
	mock.ExpectQuery("SELECT result FROM analyses").
		WithArgs("analysis-1", "other-acct").
		WillReturnError(pgx.ErrNoRows)

	_, err := st.GetAnalysis(context.Background(), "analysis-1", "other-acct")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetAnalysis_RoundTrip(t *testing.T) {
	st, mock := newMockStore(t)

	stored := `{"id":"analysis-1","account_id":"acct-1","overview":{"summary":"s","competition_tier":"high","market_insight":"i"},"opportunities":[{"service":"roofing","rank":1,"monthly_volume":900,"avg_cpc":6.5,"competition":"high"}],"budget":{"daily_budget":80,"hard_cap":2400,"projected_clicks":12,"projected_calls":2,"projected_cost":2400},"data_sources_used":["dataforseo","anthropic"],"generated_at":"2025-05-01T00:00:00Z"}`
	mock.ExpectQuery("SELECT result FROM analyses").
		WithArgs("analysis-1", "acct-1").
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow([]byte(stored)))

	result, err := st.GetAnalysis(context.Background(), "analysis-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "analysis-1", result.ID)
	require.Len(t, result.Opportunities, 1)
	assert.Equal(t, 6.5, result.Opportunities[0].AvgCPC)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListAnalyses_AppliesLimitAndOffset(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT result FROM analyses WHERE account_id").
		WithArgs("acct-1", 5, 10).
		WillReturnRows(pgxmock.NewRows([]string{"result"}))

	results, err := st.ListAnalyses(context.Background(), AnalysisFilter{AccountID: "acct-1", Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveKeywordRows_UsesCopy(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"analysis_keywords"}, keywordColumns).WillReturnResult(2)

	rows := []model.KeywordDatum{
		{Keyword: "roofing", Service: "roofing", MonthlyVolume: 900, AvgCPC: 6.5, Competition: model.CompetitionHigh},
		{Keyword: "roofing austin", Service: "roofing", City: "Austin", MonthlyVolume: 200, AvgCPC: 7.48, Competition: model.CompetitionHigh},
	}
	err := st.SaveKeywordRows(context.Background(), "analysis-1", rows)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveKeywordRows_EmptyIsNoop(t *testing.T) {
	st, mock := newMockStore(t)

	err := st.SaveKeywordRows(context.Background(), "analysis-1", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SavePlan_And_GetPlan(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO plans").
		WithArgs(pgxmock.AnyArg(), "acct-1", "analysis-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	plan := &model.CampaignPlan{AccountID: "acct-1", AnalysisID: "analysis-1", Summary: "s"}
	require.NoError(t, st.SavePlan(context.Background(), plan))
	assert.NotEmpty(t, plan.ID)

	stored := `{"id":"plan-1","account_id":"acct-1","analysis_id":"analysis-1","campaigns":[],"daily_budget":60,"hard_cap":1800,"summary":"s","generated_at":"2025-05-01T00:00:00Z"}`
	mock.ExpectQuery("SELECT plan FROM plans").
		WithArgs("plan-1", "acct-1").
		WillReturnRows(pgxmock.NewRows([]string{"plan"}).AddRow([]byte(stored)))

	got, err := st.GetPlan(context.Background(), "plan-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "analysis-1", got.AnalysisID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetPlan_NotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT plan FROM plans").
		WithArgs("missing", "acct-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := st.GetPlan(context.Background(), "missing", "acct-1")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestPostgres_UsageEvents(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO usage_events").
		WithArgs(pgxmock.AnyArg(), "acct-1", "user-1", "market_analysis", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := st.LogUsageEvent(context.Background(), model.UsageEvent{
		AccountID: "acct-1",
		UserID:    "user-1",
		EventType: model.EventMarketAnalysis,
		Metadata:  map[string]any{"analysis_id": "analysis-1"},
	})
	require.NoError(t, err)

	since := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("acct-1", "market_analysis", since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	count, err := st.CountUsageEvents(context.Background(), "acct-1", model.EventMarketAnalysis, since)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
