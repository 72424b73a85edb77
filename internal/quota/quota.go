// Package quota gates expensive operations against a per-account monthly
// limit derived from the usage ledger. The gate fails closed: if the
// ledger cannot be read, the operation is denied rather than risking an
// uncounted expensive run.
package quota

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/adscout/internal/model"
)

// UsageCounter reads the ledger. Satisfied by the store.
type UsageCounter interface {
	CountUsageEvents(ctx context.Context, accountID string, eventType model.UsageEventType, since time.Time) (int, error)
}

// EventLogger appends to the ledger. Satisfied by the store.
type EventLogger interface {
	LogUsageEvent(ctx context.Context, event model.UsageEvent) error
}

// Gate decides whether an account may start an expensive operation.
type Gate struct {
	counter UsageCounter
	limit   int
	now     func() time.Time
}

// NewGate creates a quota gate with a monthly event limit.
func NewGate(counter UsageCounter, monthlyLimit int) *Gate {
	return &Gate{counter: counter, limit: monthlyLimit, now: time.Now}
}

// WithNow sets a fixed clock for testing.
func (g *Gate) WithNow(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Quota computes the account's current quota state. A ledger read
// failure is reported as an exhausted, degraded quota (fail closed)
// with no error, so callers always get a displayable state. Used stays
// zero in that case rather than fabricating a count.
func (g *Gate) Quota(ctx context.Context, accountID string) model.UsageQuota {
	start, end := periodBounds(g.now())
	q := model.UsageQuota{
		Limit:       g.limit,
		PeriodStart: start,
		PeriodEnd:   end,
	}

	used, err := g.counter.CountUsageEvents(ctx, accountID, model.EventMarketAnalysis, start)
	if err != nil {
		zap.L().Warn("quota: ledger read failed, denying",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		q.Remaining = 0
		q.Degraded = true
		return q
	}

	q.Used = used
	q.Remaining = g.limit - used
	if q.Remaining < 0 {
		q.Remaining = 0
	}
	return q
}

// Check admits or denies an expensive operation. A denial is a
// *model.QuotaError carrying the quota state; admission returns the
// state with a nil error.
func (g *Gate) Check(ctx context.Context, accountID string) (model.UsageQuota, error) {
	q := g.Quota(ctx, accountID)
	if q.Exhausted() {
		return q, &model.QuotaError{Quota: q}
	}
	return q, nil
}

// periodBounds returns the UTC calendar-month window containing t.
func periodBounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// Ledger appends usage events best-effort: failures are logged and
// swallowed so accounting never blocks returning an already-computed
// result.
type Ledger struct {
	logger EventLogger
}

// NewLedger creates a usage ledger writer.
func NewLedger(logger EventLogger) *Ledger {
	return &Ledger{logger: logger}
}

// Record appends one event for a completed operation.
func (l *Ledger) Record(ctx context.Context, accountID, userID string, eventType model.UsageEventType, metadata map[string]any) {
	event := model.UsageEvent{
		AccountID: accountID,
		UserID:    userID,
		EventType: eventType,
		Metadata:  metadata,
	}
	if err := l.logger.LogUsageEvent(ctx, event); err != nil {
		zap.L().Warn("quota: ledger write failed",
			zap.String("account_id", accountID),
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}
