package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/pkg/google"
)

// PlacesCompetitorProvider discovers competitors via Google Places text
// search.
type PlacesCompetitorProvider struct {
	client google.Client
}

// NewPlacesCompetitorProvider wraps a Places client.
func NewPlacesCompetitorProvider(client google.Client) *PlacesCompetitorProvider {
	return &PlacesCompetitorProvider{client: client}
}

// GetCompetitors returns up to model.MaxCompetitors local businesses for
// the service near the zip, ordered by review count descending.
func (p *PlacesCompetitorProvider) GetCompetitors(ctx context.Context, service, zip string, radiusMiles int) ([]model.CompetitorRecord, error) {
	resp, err := p.client.TextSearch(ctx, google.TextSearchRequest{
		TextQuery:      fmt.Sprintf("%s within %d miles of %s", service, radiusMiles, zip),
		MaxResultCount: model.MaxCompetitors,
	})
	if err != nil {
		return nil, eris.Wrap(err, "providers: competitor search")
	}

	records := make([]model.CompetitorRecord, 0, len(resp.Places))
	for _, pl := range resp.Places {
		rec := model.CompetitorRecord{
			ExternalID:  pl.ID,
			Name:        pl.DisplayName.Text,
			Rating:      pl.Rating,
			ReviewCount: pl.UserRatingCount,
			Address:     pl.FormattedAddress,
		}
		if pl.Location != nil {
			rec.Latitude = pl.Location.Latitude
			rec.Longitude = pl.Location.Longitude
		}
		records = append(records, rec)
	}

	// Review volume proxies market establishment.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ReviewCount > records[j].ReviewCount
	})

	if len(records) > model.MaxCompetitors {
		records = records[:model.MaxCompetitors]
	}

	return records, nil
}
