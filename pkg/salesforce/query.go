package salesforce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Opportunity represents a Salesforce Opportunity (deal) record.
type Opportunity struct {
	ID          string  `json:"Id" salesforce:"Id"`
	AccountID   string  `json:"AccountId" salesforce:"AccountId"`
	Name        string  `json:"Name" salesforce:"Name"`
	StageName   string  `json:"StageName" salesforce:"StageName"`
	Amount      float64 `json:"Amount" salesforce:"Amount"`
	ServiceType string  `json:"Service_Type__c" salesforce:"Service_Type__c"`
	City        string  `json:"City__c" salesforce:"City__c"`
	CloseDate   string  `json:"CloseDate" salesforce:"CloseDate"`
	IsClosed    bool    `json:"IsClosed" salesforce:"IsClosed"`
	IsWon       bool    `json:"IsWon" salesforce:"IsWon"`
}

// opportunityFields are the SOQL fields selected for Opportunity queries.
var opportunityFields = []string{
	"Id", "AccountId", "Name", "StageName", "Amount",
	"Service_Type__c", "City__c", "CloseDate", "IsClosed", "IsWon",
}

// FindClosedOpportunities queries closed Opportunities for an account
// whose close date falls on or after the given cutoff.
func FindClosedOpportunities(ctx context.Context, c Client, accountID string, since time.Time) ([]Opportunity, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Opportunity WHERE AccountId = '%s' AND IsClosed = true AND CloseDate >= %s",
		strings.Join(opportunityFields, ", "),
		escapeSoql(accountID),
		since.Format("2006-01-02"),
	)

	var opps []Opportunity
	if err := c.Query(ctx, soql, &opps); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find closed opportunities for %s", accountID))
	}
	return opps, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
