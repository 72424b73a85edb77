package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/adscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	request    TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_account ON analyses(account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS analysis_keywords (
	analysis_id    TEXT NOT NULL REFERENCES analyses(id),
	keyword        TEXT NOT NULL,
	monthly_volume INTEGER NOT NULL DEFAULT 0,
	avg_cpc        REAL NOT NULL DEFAULT 0,
	competition    TEXT NOT NULL DEFAULT 'medium',
	service        TEXT NOT NULL,
	city           TEXT
);

CREATE INDEX IF NOT EXISTS idx_analysis_keywords_analysis ON analysis_keywords(analysis_id);

CREATE TABLE IF NOT EXISTS plans (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	plan        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_plans_account ON plans(account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS usage_events (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	event_type TEXT NOT NULL,
	metadata   TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_usage_events_account_created ON usage_events(account_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, request model.AnalysisRequest, result *model.MarketAnalysisResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.GeneratedAt.IsZero() {
		result.GeneratedAt = time.Now().UTC()
	}
	result.AccountID = request.AccountID

	requestJSON, err := json.Marshal(request)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal request")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, account_id, request, result, created_at) VALUES (?, ?, ?, ?, ?)`,
		result.ID, result.AccountID, string(requestJSON), string(resultJSON), result.GeneratedAt,
	)
	return eris.Wrap(err, "sqlite: insert analysis")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id, accountID string) (*model.MarketAnalysisResult, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM analyses WHERE id = ? AND account_id = ?`,
		id, accountID,
	).Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}

	var result model.MarketAnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	return &result, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.MarketAnalysisResult, error) {
	query := `SELECT result FROM analyses WHERE account_id = ? ORDER BY created_at DESC LIMIT ?`
	args := []any{filter.AccountID}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var results []model.MarketAnalysisResult
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		var result model.MarketAnalysisResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
		}
		results = append(results, result)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

// SaveKeywordRows inserts keyword rows inside a single transaction.
// SQLite has no COPY protocol; a prepared-statement loop is the
// equivalent bulk path.
func (s *SQLiteStore) SaveKeywordRows(ctx context.Context, analysisID string, rows []model.KeywordDatum) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin keyword tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO analysis_keywords (analysis_id, keyword, monthly_volume, avg_cpc, competition, service, city) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare keyword insert")
	}
	defer stmt.Close()

	for _, kw := range rows {
		var city any
		if kw.City != "" {
			city = kw.City
		}
		if _, err := stmt.ExecContext(ctx, analysisID, kw.Keyword, kw.MonthlyVolume, kw.AvgCPC, string(kw.Competition), kw.Service, city); err != nil {
			return eris.Wrapf(err, "sqlite: insert keyword %s", kw.Keyword)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit keyword tx")
}

func (s *SQLiteStore) SavePlan(ctx context.Context, plan *model.CampaignPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.GeneratedAt.IsZero() {
		plan.GeneratedAt = time.Now().UTC()
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal plan")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (id, account_id, analysis_id, plan, created_at) VALUES (?, ?, ?, ?, ?)`,
		plan.ID, plan.AccountID, plan.AnalysisID, string(planJSON), plan.GeneratedAt,
	)
	return eris.Wrap(err, "sqlite: insert plan")
}

func (s *SQLiteStore) GetPlan(ctx context.Context, id, accountID string) (*model.CampaignPlan, error) {
	var planJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT plan FROM plans WHERE id = ? AND account_id = ?`,
		id, accountID,
	).Scan(&planJSON)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get plan %s", id)
	}

	var plan model.CampaignPlan
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal plan")
	}
	return &plan, nil
}

func (s *SQLiteStore) LogUsageEvent(ctx context.Context, event model.UsageEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var metadataJSON any
	if event.Metadata != nil {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal event metadata")
		}
		metadataJSON = string(raw)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_events (id, account_id, user_id, event_type, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.AccountID, event.UserID, string(event.EventType), metadataJSON, event.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert usage event")
}

func (s *SQLiteStore) CountUsageEvents(ctx context.Context, accountID string, eventType model.UsageEventType, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM usage_events WHERE account_id = ? AND event_type = ? AND created_at >= ?`,
		accountID, string(eventType), since,
	).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count usage events")
}
