// Package history aggregates CRM deal records into the historical
// snapshot the synthesis stage uses as performance context.
package history

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/pkg/salesforce"
)

// DefaultLookbackMonths is the rolling window when none is configured.
const DefaultLookbackMonths = 12

// Aggregator reduces closed Salesforce opportunities to a
// HistoricalSnapshot.
type Aggregator struct {
	client         salesforce.Client
	lookbackMonths int
	now            func() time.Time
}

// NewAggregator creates an aggregator over a Salesforce client.
func NewAggregator(client salesforce.Client, lookbackMonths int) *Aggregator {
	if lookbackMonths <= 0 {
		lookbackMonths = DefaultLookbackMonths
	}
	return &Aggregator{
		client:         client,
		lookbackMonths: lookbackMonths,
		now:            time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (a *Aggregator) WithNow(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Snapshot computes the account's deal history over the lookback window.
// An account with no closed deals yields (nil, nil) — a valid state, not
// an error.
func (a *Aggregator) Snapshot(ctx context.Context, accountID string) (*model.HistoricalSnapshot, error) {
	since := a.now().UTC().AddDate(0, -a.lookbackMonths, 0)

	opps, err := salesforce.FindClosedOpportunities(ctx, a.client, accountID, since)
	if err != nil {
		return nil, eris.Wrap(err, "history: query opportunities")
	}
	if len(opps) == 0 {
		zap.L().Debug("history: no closed deals in window",
			zap.String("account_id", accountID),
			zap.Int("lookback_months", a.lookbackMonths),
		)
		return nil, nil
	}

	return reduce(opps, a.lookbackMonths), nil
}

// serviceAccum accumulates per-service totals during reduction.
type serviceAccum struct {
	deals   int
	won     int
	revenue float64
}

func reduce(opps []salesforce.Opportunity, lookbackMonths int) *model.HistoricalSnapshot {
	snap := &model.HistoricalSnapshot{LookbackMonths: lookbackMonths}

	byService := make(map[string]*serviceAccum)
	byCity := make(map[string]int)

	for _, opp := range opps {
		snap.TotalDeals++
		if opp.IsWon {
			snap.WonDeals++
			snap.TotalRevenue += opp.Amount
		}
		if opp.ServiceType != "" {
			acc := byService[opp.ServiceType]
			if acc == nil {
				acc = &serviceAccum{}
				byService[opp.ServiceType] = acc
			}
			acc.deals++
			if opp.IsWon {
				acc.won++
				acc.revenue += opp.Amount
			}
		}
		if opp.City != "" {
			byCity[opp.City]++
		}
	}

	if snap.WonDeals > 0 {
		snap.AvgRevenue = snap.TotalRevenue / float64(snap.WonDeals)
	}

	for svc, acc := range byService {
		sh := model.ServiceHistory{
			Service:   svc,
			DealCount: acc.deals,
			WinRate:   float64(acc.won) / float64(acc.deals),
			Revenue:   acc.revenue,
		}
		if acc.won > 0 {
			sh.AvgDealSize = acc.revenue / float64(acc.won)
		}
		snap.ByService = append(snap.ByService, sh)
	}
	sort.Slice(snap.ByService, func(i, j int) bool {
		if snap.ByService[i].Revenue != snap.ByService[j].Revenue {
			return snap.ByService[i].Revenue > snap.ByService[j].Revenue
		}
		return snap.ByService[i].Service < snap.ByService[j].Service
	})

	for city, count := range byCity {
		snap.TopCities = append(snap.TopCities, model.CityDealCount{City: city, DealCount: count})
	}
	sort.Slice(snap.TopCities, func(i, j int) bool {
		if snap.TopCities[i].DealCount != snap.TopCities[j].DealCount {
			return snap.TopCities[i].DealCount > snap.TopCities[j].DealCount
		}
		return snap.TopCities[i].City < snap.TopCities[j].City
	})
	if len(snap.TopCities) > model.MaxTopCities {
		snap.TopCities = snap.TopCities[:model.MaxTopCities]
	}

	return snap
}
