package providers

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/pkg/firecrawl"
)

// DefaultExtractionTimeout bounds a single website extraction.
const DefaultExtractionTimeout = 10 * time.Second

// FirecrawlExtractor extracts website content via the Firecrawl scrape
// API.
type FirecrawlExtractor struct {
	client  firecrawl.Client
	timeout time.Duration
}

// NewFirecrawlExtractor wraps a Firecrawl client. A non-positive timeout
// falls back to DefaultExtractionTimeout.
func NewFirecrawlExtractor(client firecrawl.Client, timeout time.Duration) *FirecrawlExtractor {
	if timeout <= 0 {
		timeout = DefaultExtractionTimeout
	}
	return &FirecrawlExtractor{client: client, timeout: timeout}
}

// Extract scrapes the page as markdown inside the extractor's timeout.
func (e *FirecrawlExtractor) Extract(ctx context.Context, url string) (*model.WebsiteSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     url,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "providers: website extraction")
	}
	if !resp.Success || resp.Data.Markdown == "" {
		return nil, eris.New("providers: website extraction returned no content")
	}

	return &model.WebsiteSummary{
		URL:      url,
		Title:    resp.Data.Metadata.Title,
		Markdown: resp.Data.Markdown,
	}, nil
}
