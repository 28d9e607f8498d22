package image

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	pixabayAPIURL  = "https://pixabay.com/api/"
	pixabayTimeout = 30 * time.Second
	pixabayMinPage = 3
	pixabayMaxPage = 200
	maxQueryLength = 100
)

var queryJunk = regexp.MustCompile(`[^\w\s\-]`)

// PixabayClient implements Provider for the Pixabay API. All Pixabay
// content is released under a free license.
type PixabayClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	rateLimit  *rateLimiter
}

// pixabayResponse represents the API response structure
type pixabayResponse struct {
	Total     int            `json:"total"`
	TotalHits int            `json:"totalHits"`
	Hits      []pixabayImage `json:"hits"`
	Error     string         `json:"error"`
}

// pixabayImage represents a single image in the response
type pixabayImage struct {
	ID              int    `json:"id"`
	Tags            string `json:"tags"`
	PreviewURL      string `json:"previewURL"`
	WebformatURL    string `json:"webformatURL"`
	WebformatWidth  int    `json:"webformatWidth"`
	WebformatHeight int    `json:"webformatHeight"`
	LargeImageURL   string `json:"largeImageURL"`
	ImageWidth      int    `json:"imageWidth"`
	ImageHeight     int    `json:"imageHeight"`
	User            string `json:"user"`
}

// NewPixabayClient creates a new Pixabay API client
func NewPixabayClient(apiKey string) *PixabayClient {
	return &PixabayClient{
		apiKey:  apiKey,
		baseURL: pixabayAPIURL,
		httpClient: &http.Client{
			Timeout: pixabayTimeout,
		},
		rateLimit: newRateLimiter(100, time.Minute),
	}
}

// cleanQuery strips punctuation, collapses whitespace and caps the length
func cleanQuery(term string) string {
	cleaned := strings.Join(strings.Fields(queryJunk.ReplaceAllString(term, " ")), " ")
	if runes := []rune(cleaned); len(runes) > maxQueryLength {
		cleaned = strings.TrimSpace(string(runes[:maxQueryLength]))
	}
	return cleaned
}

// Search performs an image search on Pixabay
func (p *PixabayClient) Search(ctx context.Context, opts *SearchOptions) ([]Candidate, error) {
	query := cleanQuery(opts.Query)
	if query == "" {
		return nil, nil
	}

	if err := p.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	// The API rejects pages outside 3..200; short requests are padded and
	// the hits trimmed afterwards.
	perPage := min(max(opts.PerPage, pixabayMinPage), pixabayMaxPage)

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("q", query)
	params.Set("image_type", opts.ImageType)
	params.Set("orientation", opts.Orientation)
	params.Set("min_width", fmt.Sprintf("%d", opts.MinWidth))
	params.Set("min_height", fmt.Sprintf("%d", opts.MinHeight))
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	params.Set("safesearch", fmt.Sprintf("%t", opts.SafeSearch))
	params.Set("order", "popular")
	// Cache busting, Pixabay caches identical queries aggressively
	params.Set("_t", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("_r", fmt.Sprintf("%d", rand.IntN(1000000)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Expires", "0")

	slog.Debug("searching images", "provider", p.Name(), "query", query, "per_page", perPage)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			Provider:     p.Name(),
			RetryAfter:   60,
			LimitPerHour: 5000,
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &SearchError{
			Provider: p.Name(),
			Code:     fmt.Sprintf("%d", resp.StatusCode),
			Message:  strings.TrimSpace(string(body)),
		}
	}

	var pixResp pixabayResponse
	if err := json.NewDecoder(resp.Body).Decode(&pixResp); err != nil {
		return nil, &SearchError{
			Provider: p.Name(),
			Code:     "decode",
			Message:  fmt.Sprintf("failed to decode response: %v", err),
		}
	}
	if pixResp.Error != "" {
		return nil, &SearchError{
			Provider: p.Name(),
			Code:     "api",
			Message:  pixResp.Error,
		}
	}

	results := make([]Candidate, 0, len(pixResp.Hits))
	for _, hit := range pixResp.Hits {
		c := Candidate{
			ID:             fmt.Sprintf("%d", hit.ID),
			URL:            hit.WebformatURL,
			ThumbnailURL:   hit.PreviewURL,
			Width:          hit.WebformatWidth,
			Height:         hit.WebformatHeight,
			Provider:       p.Name(),
			Tags:           hit.Tags,
			FreelyLicensed: true,
		}
		if c.URL == "" {
			c.URL = hit.LargeImageURL
		}
		if c.Width == 0 || c.Height == 0 {
			c.Width, c.Height = hit.ImageWidth, hit.ImageHeight
		}
		results = append(results, c)
	}

	if opts.PerPage > 0 && len(results) > opts.PerPage {
		results = results[:opts.PerPage]
	}
	return results, nil
}

// Name returns the name of the search provider
func (p *PixabayClient) Name() string {
	return "pixabay"
}
