package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/adscout/internal/db"
	"github.com/sells-group/adscout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_analysis":    `INSERT INTO analyses (id, account_id, request, result, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"get_analysis":       `SELECT result FROM analyses WHERE id = $1 AND account_id = $2`,
	"insert_plan":        `INSERT INTO plans (id, account_id, analysis_id, plan, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"get_plan":           `SELECT plan FROM plans WHERE id = $1 AND account_id = $2`,
	"insert_usage_event": `INSERT INTO usage_events (id, account_id, user_id, event_type, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"count_usage_events": `SELECT COUNT(*) FROM usage_events WHERE account_id = $1 AND event_type = $2 AND created_at >= $3`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests and by
// callers that manage pool lifecycle themselves.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	account_id TEXT NOT NULL,
	request    JSONB NOT NULL,
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_account ON analyses(account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS analysis_keywords (
	analysis_id    TEXT NOT NULL REFERENCES analyses(id),
	keyword        TEXT NOT NULL,
	monthly_volume INTEGER NOT NULL DEFAULT 0,
	avg_cpc        DOUBLE PRECISION NOT NULL DEFAULT 0,
	competition    TEXT NOT NULL DEFAULT 'medium',
	service        TEXT NOT NULL,
	city           TEXT
);

CREATE INDEX IF NOT EXISTS idx_analysis_keywords_analysis ON analysis_keywords(analysis_id);

CREATE TABLE IF NOT EXISTS plans (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	account_id  TEXT NOT NULL,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	plan        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_plans_account ON plans(account_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_plans_analysis ON plans(analysis_id);

CREATE TABLE IF NOT EXISTS usage_events (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	account_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	event_type TEXT NOT NULL,
	metadata   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_usage_events_account_created ON usage_events(account_id, created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveAnalysis persists a synthesized analysis together with the request
// that produced it. Assigns the id and timestamp when unset.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, request model.AnalysisRequest, result *model.MarketAnalysisResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.GeneratedAt.IsZero() {
		result.GeneratedAt = time.Now().UTC()
	}
	result.AccountID = request.AccountID

	requestJSON, err := json.Marshal(request)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal request")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, account_id, request, result, created_at) VALUES ($1, $2, $3, $4, $5)`,
		result.ID, result.AccountID, requestJSON, resultJSON, result.GeneratedAt,
	)
	return eris.Wrap(err, "postgres: insert analysis")
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id, accountID string) (*model.MarketAnalysisResult, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM analyses WHERE id = $1 AND account_id = $2`,
		id, accountID,
	).Scan(&resultJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}

	var result model.MarketAnalysisResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis")
	}
	return &result, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.MarketAnalysisResult, error) {
	query := `SELECT result FROM analyses WHERE account_id = $1 ORDER BY created_at DESC`
	args := []any{filter.AccountID}
	argIdx := 2

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var results []model.MarketAnalysisResult
	for rows.Next() {
		var resultJSON []byte
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		var result model.MarketAnalysisResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal analysis")
		}
		results = append(results, result)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

// keywordColumns matches the analysis_keywords table for COPY.
var keywordColumns = []string{"analysis_id", "keyword", "monthly_volume", "avg_cpc", "competition", "service", "city"}

// SaveKeywordRows bulk-inserts keyword rows via COPY.
func (s *PostgresStore) SaveKeywordRows(ctx context.Context, analysisID string, rows []model.KeywordDatum) error {
	if len(rows) == 0 {
		return nil
	}

	copyRows := make([][]any, len(rows))
	for i, kw := range rows {
		var city any
		if kw.City != "" {
			city = kw.City
		}
		copyRows[i] = []any{analysisID, kw.Keyword, kw.MonthlyVolume, kw.AvgCPC, string(kw.Competition), kw.Service, city}
	}

	_, err := db.CopyFrom(ctx, s.pool, "analysis_keywords", keywordColumns, copyRows)
	return eris.Wrapf(err, "postgres: save keyword rows for %s", analysisID)
}

// SavePlan persists a derived campaign plan. Assigns the id and
// timestamp when unset.
func (s *PostgresStore) SavePlan(ctx context.Context, plan *model.CampaignPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.GeneratedAt.IsZero() {
		plan.GeneratedAt = time.Now().UTC()
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal plan")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO plans (id, account_id, analysis_id, plan, created_at) VALUES ($1, $2, $3, $4, $5)`,
		plan.ID, plan.AccountID, plan.AnalysisID, planJSON, plan.GeneratedAt,
	)
	return eris.Wrap(err, "postgres: insert plan")
}

func (s *PostgresStore) GetPlan(ctx context.Context, id, accountID string) (*model.CampaignPlan, error) {
	var planJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT plan FROM plans WHERE id = $1 AND account_id = $2`,
		id, accountID,
	).Scan(&planJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get plan %s", id)
	}

	var plan model.CampaignPlan
	if err := json.Unmarshal(planJSON, &plan); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal plan")
	}
	return &plan, nil
}

func (s *PostgresStore) LogUsageEvent(ctx context.Context, event model.UsageEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal event metadata")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO usage_events (id, account_id, user_id, event_type, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.AccountID, event.UserID, string(event.EventType), metadataJSON, event.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert usage event")
}

func (s *PostgresStore) CountUsageEvents(ctx context.Context, accountID string, eventType model.UsageEventType, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM usage_events WHERE account_id = $1 AND event_type = $2 AND created_at >= $3`,
		accountID, string(eventType), since,
	).Scan(&count)
	return count, eris.Wrap(err, "postgres: count usage events")
}
