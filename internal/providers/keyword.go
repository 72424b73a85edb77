package providers

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/adscout/internal/estimate"
	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/internal/resilience"
	"github.com/sells-group/adscout/pkg/dataforseo"
)

// keywordOrigin ties a generated keyword string back to its service and
// optional city so provider rows can be re-associated.
type keywordOrigin struct {
	service string
	city    string
}

// DataForSEOKeywordProvider fetches authoritative volume/CPC metrics.
// City-to-location-code resolutions are cached for the process lifetime:
// the mapping is effectively static, and a cache race costs at most one
// redundant fetch.
type DataForSEOKeywordProvider struct {
	client dataforseo.Client
	retry  resilience.Policy

	mu            sync.RWMutex
	locationCodes map[string]int
}

// NewDataForSEOKeywordProvider wraps a DataForSEO client.
func NewDataForSEOKeywordProvider(client dataforseo.Client) *DataForSEOKeywordProvider {
	return &DataForSEOKeywordProvider{
		client:        client,
		retry:         resilience.ProviderPolicy(),
		locationCodes: make(map[string]int),
	}
}

// GetKeywordData queries metrics for every base and city-qualified
// keyword variant. No data is an empty result, never an error.
func (p *DataForSEOKeywordProvider) GetKeywordData(ctx context.Context, q KeywordQuery) (KeywordResult, error) {
	origins := make(map[string]keywordOrigin)
	var keywords []string
	for _, svc := range q.Services {
		term := strings.ToLower(strings.TrimSpace(svc))
		if term == "" {
			continue
		}
		for _, kw := range []string{term, term + " near me"} {
			if _, seen := origins[kw]; !seen {
				keywords = append(keywords, kw)
			}
			origins[kw] = keywordOrigin{service: svc}
		}
		for _, city := range q.Cities {
			c := strings.ToLower(strings.TrimSpace(city))
			if c == "" {
				continue
			}
			kw := term + " " + c
			if _, seen := origins[kw]; !seen {
				keywords = append(keywords, kw)
			}
			origins[kw] = keywordOrigin{service: svc, city: city}
		}
	}
	if len(keywords) == 0 {
		return KeywordResult{Source: SourceDataForSEO}, nil
	}

	locationCode := p.resolveLocationCode(ctx, q.Cities, q.Region)

	rows, err := resilience.Retry(ctx, "dataforseo", p.retry, func(ctx context.Context) ([]dataforseo.KeywordMetrics, error) {
		return p.client.SearchVolume(ctx, dataforseo.SearchVolumeRequest{
			Keywords:     keywords,
			LocationCode: locationCode,
			LanguageCode: "en",
		})
	})
	if err != nil {
		return KeywordResult{}, eris.Wrap(err, "providers: keyword search volume")
	}

	data := make([]model.KeywordDatum, 0, len(rows))
	for _, row := range rows {
		origin, ok := origins[strings.ToLower(row.Keyword)]
		if !ok {
			continue
		}
		data = append(data, model.KeywordDatum{
			Keyword:       row.Keyword,
			MonthlyVolume: row.SearchVolume,
			AvgCPC:        row.CPC,
			Competition:   competitionTier(row.CompetitionLevel),
			Service:       origin.service,
			City:          origin.city,
		})
	}

	return KeywordResult{Data: data, Source: SourceDataForSEO}, nil
}

// foldName normalizes a location name for caseless matching; names are
// not guaranteed to be ASCII. Casers are stateful, so build one per call.
func foldName(s string) string {
	return cases.Fold().String(s)
}

// resolveLocationCode targets the first resolvable city, falling back to
// country-wide (code 0).
func (p *DataForSEOKeywordProvider) resolveLocationCode(ctx context.Context, cities []string, region string) int {
	for _, city := range cities {
		key := foldName(strings.TrimSpace(city))
		if key == "" {
			continue
		}

		p.mu.RLock()
		code, ok := p.locationCodes[key]
		p.mu.RUnlock()
		if ok {
			return code
		}

		if code := p.fetchLocationCode(ctx, key, region); code != 0 {
			return code
		}
	}
	return 0
}

func (p *DataForSEOKeywordProvider) fetchLocationCode(ctx context.Context, cityKey, region string) int {
	country := region
	if country == "" {
		country = "US"
	}

	locs, err := p.client.Locations(ctx, country)
	if err != nil {
		zap.L().Warn("providers: location lookup failed",
			zap.String("city", cityKey),
			zap.Error(err),
		)
		return 0
	}

	// Index every city-level location from the response; mappings are
	// stable, so concurrent writers can only repeat work.
	p.mu.Lock()
	for _, loc := range locs {
		if loc.LocationType != "City" {
			continue
		}
		name := foldName(loc.LocationName)
		if idx := strings.Index(name, ","); idx > 0 {
			name = name[:idx]
		}
		if _, exists := p.locationCodes[name]; !exists {
			p.locationCodes[name] = loc.LocationCode
		}
	}
	code := p.locationCodes[cityKey]
	p.mu.Unlock()

	return code
}

func competitionTier(level string) model.CompetitionTier {
	switch strings.ToUpper(level) {
	case "LOW":
		return model.CompetitionLow
	case "HIGH":
		return model.CompetitionHigh
	default:
		return model.CompetitionMedium
	}
}

// EstimatorKeywordProvider synthesizes keyword figures from the market
// factor when no authoritative source is available. Pure given the query.
type EstimatorKeywordProvider struct {
	interp *estimate.Interpolator
}

// NewEstimatorKeywordProvider wraps an interpolator.
func NewEstimatorKeywordProvider(interp *estimate.Interpolator) *EstimatorKeywordProvider {
	return &EstimatorKeywordProvider{interp: interp}
}

// GetKeywordData interpolates every service's template at the query's
// market factor.
func (p *EstimatorKeywordProvider) GetKeywordData(_ context.Context, q KeywordQuery) (KeywordResult, error) {
	var data []model.KeywordDatum
	for _, svc := range q.Services {
		data = append(data, p.interp.Keywords(svc, q.Cities, q.MarketFactor)...)
	}
	return KeywordResult{Data: data, Source: SourceEstimator}, nil
}

// FallbackKeywordProvider composes a primary and a fallback provider
// behind the KeywordProvider interface. The fallback is used when the
// primary is absent, fails, or returns no rows; the result's Source
// reports which provider actually served.
type FallbackKeywordProvider struct {
	primary  KeywordProvider
	fallback KeywordProvider
}

// NewFallbackKeywordProvider builds the decorator. primary may be nil
// when no authoritative source is configured.
func NewFallbackKeywordProvider(primary, fallback KeywordProvider) *FallbackKeywordProvider {
	return &FallbackKeywordProvider{primary: primary, fallback: fallback}
}

// GetKeywordData tries the primary first, then degrades to the fallback.
func (p *FallbackKeywordProvider) GetKeywordData(ctx context.Context, q KeywordQuery) (KeywordResult, error) {
	if p.primary != nil {
		res, err := p.primary.GetKeywordData(ctx, q)
		if err == nil && len(res.Data) > 0 {
			return res, nil
		}
		if err != nil {
			zap.L().Warn("providers: primary keyword source failed, falling back",
				zap.Error(err),
			)
		} else {
			zap.L().Info("providers: primary keyword source empty, falling back")
		}
	}
	return p.fallback.GetKeywordData(ctx, q)
}
