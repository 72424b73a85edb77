package history

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/pkg/salesforce"
)

type fakeSF struct {
	opps     []salesforce.Opportunity
	err      error
	lastSOQL string
}

func (f *fakeSF) Query(_ context.Context, soql string, out any) error {
	f.lastSOQL = soql
	if f.err != nil {
		return f.err
	}
	raw, _ := json.Marshal(f.opps)
	return json.Unmarshal(raw, out)
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func TestSnapshot_NoDealsReturnsNilNil(t *testing.T) {
	sf := &fakeSF{}
	agg := NewAggregator(sf, 12).WithNow(fixedNow)

	snap, err := agg.Snapshot(context.Background(), "001xx000003DGb0AAG")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshot_QueryErrorPropagates(t *testing.T) {
	sf := &fakeSF{err: eris.New("sf down")}
	agg := NewAggregator(sf, 12).WithNow(fixedNow)

	snap, err := agg.Snapshot(context.Background(), "001xx000003DGb0AAG")
	require.Error(t, err)
	assert.Nil(t, snap)
}

func TestSnapshot_WindowUsesLookback(t *testing.T) {
	sf := &fakeSF{}
	agg := NewAggregator(sf, 6).WithNow(fixedNow)

	_, err := agg.Snapshot(context.Background(), "001xx000003DGb0AAG")
	require.NoError(t, err)
	assert.True(t, strings.Contains(sf.lastSOQL, "CloseDate >= 2024-12-15"), sf.lastSOQL)
}

func TestSnapshot_Aggregates(t *testing.T) {
	sf := &fakeSF{opps: []salesforce.Opportunity{
		{ID: "1", IsWon: true, Amount: 12000, ServiceType: "roofing", City: "Austin"},
		{ID: "2", IsWon: true, Amount: 8000, ServiceType: "roofing", City: "Austin"},
		{ID: "3", IsWon: false, Amount: 5000, ServiceType: "roofing", City: "Round Rock"},
		{ID: "4", IsWon: true, Amount: 3000, ServiceType: "gutter repair", City: "Austin"},
		{ID: "5", IsWon: false, Amount: 2000, ServiceType: "gutter repair", City: ""},
	}}
	agg := NewAggregator(sf, 12).WithNow(fixedNow)

	snap, err := agg.Snapshot(context.Background(), "001xx000003DGb0AAG")
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, 5, snap.TotalDeals)
	assert.Equal(t, 3, snap.WonDeals)
	assert.InDelta(t, 23000, snap.TotalRevenue, 0.001)
	assert.InDelta(t, 23000.0/3, snap.AvgRevenue, 0.001)
	assert.Equal(t, 12, snap.LookbackMonths)

	// Revenue-sorted service breakdown.
	require.Len(t, snap.ByService, 2)
	assert.Equal(t, "roofing", snap.ByService[0].Service)
	assert.Equal(t, 3, snap.ByService[0].DealCount)
	assert.InDelta(t, 2.0/3, snap.ByService[0].WinRate, 0.001)
	assert.InDelta(t, 10000, snap.ByService[0].AvgDealSize, 0.001)
	assert.Equal(t, "gutter repair", snap.ByService[1].Service)
	assert.InDelta(t, 0.5, snap.ByService[1].WinRate, 0.001)

	// Cities ranked by deal count; blank cities excluded.
	require.Len(t, snap.TopCities, 2)
	assert.Equal(t, model.CityDealCount{City: "Austin", DealCount: 3}, snap.TopCities[0])
	assert.Equal(t, model.CityDealCount{City: "Round Rock", DealCount: 1}, snap.TopCities[1])
}

func TestSnapshot_TopCitiesCapped(t *testing.T) {
	var opps []salesforce.Opportunity
	for i := 0; i < 14; i++ {
		opps = append(opps, salesforce.Opportunity{
			ID:   string(rune('a' + i)),
			City: "City " + string(rune('A'+i)),
		})
	}
	sf := &fakeSF{opps: opps}
	agg := NewAggregator(sf, 12).WithNow(fixedNow)

	snap, err := agg.Snapshot(context.Background(), "001xx000003DGb0AAG")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.TopCities, model.MaxTopCities)
}
