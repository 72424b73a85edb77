// Package dataforseo provides a minimal client for the DataForSEO
// Google Ads keyword data API.
package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.dataforseo.com/v3"

// taskStatusOK is the DataForSEO per-task success status code.
const taskStatusOK = 20000

// Client defines the DataForSEO operations used by the keyword provider.
type Client interface {
	SearchVolume(ctx context.Context, req SearchVolumeRequest) ([]KeywordMetrics, error)
	Locations(ctx context.Context, country string) ([]Location, error)
}

// SearchVolumeRequest asks for volume/CPC metrics for a keyword set.
// A zero LocationCode means country-wide.
type SearchVolumeRequest struct {
	Keywords     []string `json:"keywords"`
	LocationCode int      `json:"location_code,omitempty"`
	LanguageCode string   `json:"language_code,omitempty"`
}

// KeywordMetrics is one keyword's metrics row.
type KeywordMetrics struct {
	Keyword          string  `json:"keyword"`
	SearchVolume     int     `json:"search_volume"`
	CPC              float64 `json:"cpc"`
	Competition      float64 `json:"competition"`
	CompetitionLevel string  `json:"competition_level"`
}

// Location is one geographic target.
type Location struct {
	LocationCode int    `json:"location_code"`
	LocationName string `json:"location_name"`
	LocationType string `json:"location_type"`
	CountryCode  string `json:"country_iso_code"`
}

type taskEnvelope[T any] struct {
	StatusCode int       `json:"status_code"`
	Tasks      []task[T] `json:"tasks"`
}

type task[T any] struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Result        []T    `json:"result"`
}

// APIError is returned when DataForSEO responds with a non-2xx status or
// a failed task.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dataforseo: status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the failure is worth retrying. Task-level
// DataForSEO codes are five digits and never match; only HTTP-level
// server errors and throttling qualify.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	login    string
	password string
	baseURL  string
	http     *http.Client
}

// NewClient creates a DataForSEO client with basic-auth credentials.
func NewClient(login, password string, opts ...Option) Client {
	c := &httpClient{
		login:    login,
		password: password,
		baseURL:  defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchVolume(ctx context.Context, req SearchVolumeRequest) ([]KeywordMetrics, error) {
	// The live endpoint takes an array of task payloads.
	body, err := json.Marshal([]SearchVolumeRequest{req})
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: marshal request")
	}

	var env taskEnvelope[KeywordMetrics]
	if err := c.post(ctx, "/keywords_data/google_ads/search_volume/live", body, &env); err != nil {
		return nil, err
	}

	return collectResults(env)
}

func (c *httpClient) Locations(ctx context.Context, country string) ([]Location, error) {
	path := "/keywords_data/google_ads/locations"
	if country != "" {
		path += "/" + country
	}

	var env taskEnvelope[Location]
	if err := c.get(ctx, path, &env); err != nil {
		return nil, err
	}

	return collectResults(env)
}

func collectResults[T any](env taskEnvelope[T]) ([]T, error) {
	var out []T
	for _, t := range env.Tasks {
		if t.StatusCode != taskStatusOK {
			return nil, &APIError{StatusCode: t.StatusCode, Message: t.StatusMessage}
		}
		out = append(out, t.Result...)
	}
	return out, nil
}

func (c *httpClient) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "dataforseo: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "dataforseo: create request")
	}
	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	req.SetBasicAuth(c.login, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "dataforseo: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "dataforseo: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "dataforseo: unmarshal response")
	}

	return nil
}
