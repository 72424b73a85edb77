package salesforce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records the SOQL it receives and returns canned records.
type fakeClient struct {
	soql string
	opps []Opportunity
	err  error
}

func (f *fakeClient) Query(_ context.Context, soql string, out any) error {
	f.soql = soql
	if f.err != nil {
		return f.err
	}
	*(out.(*[]Opportunity)) = f.opps
	return nil
}

func TestFindClosedOpportunities(t *testing.T) {
	fc := &fakeClient{opps: []Opportunity{
		{ID: "006xx1", StageName: "Closed Won", Amount: 4200, IsClosed: true, IsWon: true},
	}}

	since := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	opps, err := FindClosedOpportunities(context.Background(), fc, "001xx", since)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.True(t, opps[0].IsWon)

	assert.Contains(t, fc.soql, "FROM Opportunity")
	assert.Contains(t, fc.soql, "AccountId = '001xx'")
	assert.Contains(t, fc.soql, "IsClosed = true")
	assert.Contains(t, fc.soql, "CloseDate >= 2025-08-01")
}

func TestFindClosedOpportunities_EscapesQuotes(t *testing.T) {
	fc := &fakeClient{}
	_, err := FindClosedOpportunities(context.Background(), fc, "001'; DROP", time.Now())
	require.NoError(t, err)
	assert.Contains(t, fc.soql, `001\'; DROP`)
}

func TestEscapeSoql(t *testing.T) {
	assert.Equal(t, `O\'Brien`, escapeSoql("O'Brien"))
	assert.Equal(t, "plain", escapeSoql("plain"))
}
