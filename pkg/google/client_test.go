package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.userRatingCount")

		var req TextSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "painters near 92101", req.TextQuery)
		assert.Equal(t, 20, req.MaxResultCount)

		json.NewEncoder(w).Encode(TextSearchResponse{Places: []Place{
			{
				ID:               "place-1",
				DisplayName:      DisplayName{Text: "Ace Painting"},
				Rating:           4.8,
				UserRatingCount:  412,
				FormattedAddress: "123 Main St, San Diego, CA",
				Location:         &LatLng{Latitude: 32.7, Longitude: -117.1},
			},
		}})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.TextSearch(context.Background(), TextSearchRequest{
		TextQuery:      "painters near 92101",
		MaxResultCount: 20,
	})
	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "Ace Painting", resp.Places[0].DisplayName.Text)
	assert.Equal(t, 412, resp.Places[0].UserRatingCount)
}

func TestTextSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.TextSearch(context.Background(), TextSearchRequest{TextQuery: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestTextSearch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.TextSearch(context.Background(), TextSearchRequest{TextQuery: "x"})
	require.Error(t, err)
}
