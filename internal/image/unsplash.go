package image

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	unsplashAPIURL  = "https://api.unsplash.com"
	unsplashTimeout = 30 * time.Second
)

// UnsplashClient implements Provider for the Unsplash API
type UnsplashClient struct {
	accessKey  string
	baseURL    string
	httpClient *http.Client
	rateLimit  *rateLimiter
}

// unsplashSearchResponse represents the search API response
type unsplashSearchResponse struct {
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
	Results    []unsplashPhoto `json:"results"`
}

// unsplashPhoto represents a photo in the response
type unsplashPhoto struct {
	ID          string            `json:"id"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Description string            `json:"description"`
	AltDesc     string            `json:"alt_description"`
	URLs        unsplashPhotoURLs `json:"urls"`
	User        unsplashUser      `json:"user"`
}

// unsplashPhotoURLs contains various size URLs
type unsplashPhotoURLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

// unsplashUser represents the photo author
type unsplashUser struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// NewUnsplashClient creates a new Unsplash API client
func NewUnsplashClient(accessKey string) (*UnsplashClient, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("Unsplash access key is required")
	}

	return &UnsplashClient{
		accessKey: accessKey,
		baseURL:   unsplashAPIURL,
		httpClient: &http.Client{
			Timeout: unsplashTimeout,
		},
		rateLimit: newRateLimiter(50, time.Hour), // demo apps get 50 requests per hour
	}, nil
}

// Search performs an image search on Unsplash
func (u *UnsplashClient) Search(ctx context.Context, opts *SearchOptions) ([]Candidate, error) {
	query := cleanQuery(opts.Query)
	if query == "" {
		return nil, nil
	}

	if err := u.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprintf("%d", opts.PerPage))
	if opts.SafeSearch {
		params.Set("content_filter", "high")
	}
	if o := mapOrientation(opts.Orientation); o != "" {
		params.Set("orientation", o)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+u.accessKey)
	req.Header.Set("Accept-Version", "v1")

	slog.Debug("searching images", "provider", u.Name(), "query", query, "per_page", opts.PerPage)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.Header.Get("X-Ratelimit-Remaining") == "0" && resp.StatusCode == http.StatusForbidden {
		retryAfter := 3600
		if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = v
		}
		return nil, &RateLimitError{
			Provider:     u.Name(),
			RetryAfter:   retryAfter,
			LimitPerHour: 50,
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &SearchError{
			Provider: u.Name(),
			Code:     "401",
			Message:  "Invalid access key",
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &SearchError{
			Provider: u.Name(),
			Code:     fmt.Sprintf("%d", resp.StatusCode),
			Message:  strings.TrimSpace(string(body)),
		}
	}

	var searchResp unsplashSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, &SearchError{
			Provider: u.Name(),
			Code:     "decode",
			Message:  fmt.Sprintf("failed to decode response: %v", err),
		}
	}

	results := make([]Candidate, 0, len(searchResp.Results))
	for _, photo := range searchResp.Results {
		tags := photo.Description
		if tags == "" {
			tags = photo.AltDesc
		}

		results = append(results, Candidate{
			ID:             photo.ID,
			URL:            photo.URLs.Regular,
			ThumbnailURL:   photo.URLs.Thumb,
			Width:          photo.Width,
			Height:         photo.Height,
			Provider:       u.Name(),
			Tags:           tags,
			FreelyLicensed: true,
		})
	}

	return results, nil
}

// Name returns the name of the search provider
func (u *UnsplashClient) Name() string {
	return "unsplash"
}

// mapOrientation maps our orientation values to Unsplash API values
func mapOrientation(orientation string) string {
	switch orientation {
	case "horizontal":
		return "landscape"
	case "vertical":
		return "portrait"
	default:
		return ""
	}
}
