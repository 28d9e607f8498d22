package image

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	bingAPIURL  = "https://api.bing.microsoft.com/v7.0/images/search"
	bingTimeout = 30 * time.Second
)

// BingClient implements Provider for the Bing Image Search API. Bing
// results carry no license guarantee.
type BingClient struct {
	apiKey     string
	baseURL    string
	enhancer   KeywordEnhancer
	httpClient *http.Client
	rateLimit  *rateLimiter
}

type bingResponse struct {
	Value []bingImage `json:"value"`
}

type bingImage struct {
	ImageID      string `json:"imageId"`
	Name         string `json:"name"`
	ContentURL   string `json:"contentUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// NewBingClient creates a new Bing client. Queries are rewritten by enhancer
// before they are sent.
func NewBingClient(apiKey string, enhancer KeywordEnhancer) *BingClient {
	return &BingClient{
		apiKey:   apiKey,
		baseURL:  bingAPIURL,
		enhancer: enhancer,
		httpClient: &http.Client{
			Timeout: bingTimeout,
		},
		rateLimit: newRateLimiter(3, time.Second),
	}
}

// Search performs an image search on Bing
func (b *BingClient) Search(ctx context.Context, opts *SearchOptions) ([]Candidate, error) {
	term := cleanQuery(opts.Query)
	if term == "" {
		return nil, nil
	}

	if err := b.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	query := b.enhancer.Enhance(term)
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", opts.PerPage))
	params.Set("imageType", "Photo")
	params.Set("size", "Medium")
	if opts.SafeSearch {
		params.Set("safeSearch", "Strict")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", b.apiKey)

	slog.Debug("searching images", "provider", b.Name(), "query", query, "count", opts.PerPage)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			Provider:   b.Name(),
			RetryAfter: 1,
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &SearchError{
			Provider: b.Name(),
			Code:     fmt.Sprintf("%d", resp.StatusCode),
			Message:  strings.TrimSpace(string(body)),
		}
	}

	var bingResp bingResponse
	if err := json.NewDecoder(resp.Body).Decode(&bingResp); err != nil {
		return nil, &SearchError{
			Provider: b.Name(),
			Code:     "decode",
			Message:  fmt.Sprintf("failed to decode response: %v", err),
		}
	}

	results := make([]Candidate, 0, len(bingResp.Value))
	for _, item := range bingResp.Value {
		results = append(results, Candidate{
			ID:           item.ImageID,
			URL:          item.ContentURL,
			ThumbnailURL: item.ThumbnailURL,
			Width:        item.Width,
			Height:       item.Height,
			Provider:     b.Name(),
			Tags:         item.Name,
		})
	}

	return results, nil
}

// Name returns the name of the search provider
func (b *BingClient) Name() string {
	return "bing"
}
