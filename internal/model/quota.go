package model

import "time"

// UsageEventType labels a ledger event.
type UsageEventType string

const (
	EventMarketAnalysis UsageEventType = "market_analysis"
	EventCampaignPlan   UsageEventType = "campaign_plan"
)

// UsageEvent is one appended ledger row.
type UsageEvent struct {
	ID        string         `json:"id"`
	AccountID string         `json:"account_id"`
	UserID    string         `json:"user_id"`
	EventType UsageEventType `json:"event_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// UsageQuota is the derived quota state for an account. Computed per
// request from the ledger, never stored directly.
type UsageQuota struct {
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	Remaining   int       `json:"remaining"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	// Degraded is set when the ledger could not be read: Used is then
	// unknown (reported as zero) and Remaining is zero.
	Degraded bool `json:"degraded,omitempty"`
}

// Exhausted reports whether the account may not start another expensive
// operation this period.
func (q UsageQuota) Exhausted() bool {
	return q.Remaining <= 0
}
