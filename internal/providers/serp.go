package providers

import (
	"context"
	"time"

	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/internal/resilience"
	"github.com/sells-group/adscout/pkg/serpapi"
)

// SerpAPIProvider snapshots search results pages via SerpAPI. A circuit
// breaker sheds calls while the upstream is failing; an open circuit
// degrades the branch the same way any provider error does.
type SerpAPIProvider struct {
	client  serpapi.Client
	breaker *resilience.Breaker
}

// NewSerpAPIProvider wraps a SerpAPI client.
func NewSerpAPIProvider(client serpapi.Client) *SerpAPIProvider {
	return &SerpAPIProvider{
		client:  client,
		breaker: resilience.NewBreaker("serpapi", 5, 30*time.Second),
	}
}

// GetSerpResults captures the paid and organic results for a query.
func (p *SerpAPIProvider) GetSerpResults(ctx context.Context, query, location string) (*model.SearchSnapshot, error) {
	resp, err := resilience.Guard(ctx, p.breaker, func(ctx context.Context) (*serpapi.SearchResponse, error) {
		return p.client.Search(ctx, query, location)
	})
	if err != nil {
		return nil, err
	}

	snap := &model.SearchSnapshot{
		Query:     query,
		Location:  location,
		FetchedAt: time.Now().UTC(),
	}
	for _, ad := range resp.Ads {
		snap.Ads = append(snap.Ads, model.SearchAd{
			Position:    ad.Position,
			Title:       ad.Title,
			Description: ad.Description,
			DisplayURL:  ad.DisplayedLink,
			Advertiser:  ad.Source,
		})
	}
	for _, res := range resp.OrganicResults {
		snap.Organic = append(snap.Organic, model.SearchResult{
			Position: res.Position,
			Title:    res.Title,
			URL:      res.Link,
			Snippet:  res.Snippet,
		})
	}

	return snap, nil
}
