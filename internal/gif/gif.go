package gif

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const requestTimeout = 10 * time.Second

// Client wraps the GIF search provider's HTTP API so the API key never
// reaches the browser.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

type searchResponse struct {
	Results []struct {
		MediaFormats struct {
			Gif struct {
				URL string `json:"url"`
			} `json:"gif"`
		} `json:"media_formats"`
	} `json:"results"`
}

// Search returns GIF URLs for the query. The provider call is bounded
// by the client timeout, an expiry surfaces as an error to the caller.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("media_filter", "gif")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gif provider returned status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		if result.MediaFormats.Gif.URL != "" {
			urls = append(urls, result.MediaFormats.Gif.URL)
		}
	}
	return urls, nil
}
