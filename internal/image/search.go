package image

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"codeberg.org/snonux/flashpix/internal"
)

// Candidate is one image returned by a search provider
type Candidate struct {
	ID             string // Provider specific identifier
	URL            string // Full size image URL attached to the card
	ThumbnailURL   string // Preview shown while choosing
	Width          int    // Width in pixels
	Height         int    // Height in pixels
	Provider       string // Source provider (e.g., "pixabay", "bing")
	Tags           string // Provider tags or title, comma separated
	FreelyLicensed bool   // True when the provider guarantees a free license
}

// Size returns the candidate dimensions as "WxH"
func (c Candidate) Size() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// SearchOptions configures a provider request
type SearchOptions struct {
	Query       string // Cleaned search term
	PerPage     int    // Number of results wanted
	MinWidth    int    // Minimum width requested from the provider
	MinHeight   int    // Minimum height requested from the provider
	SafeSearch  bool   // Enable safe search filtering
	ImageType   string // Type: "photo", "illustration", "vector", "all"
	Orientation string // Orientation: "horizontal", "vertical", "all"
}

// DefaultSearchOptions returns the options used for flashcard images
func DefaultSearchOptions(query string, perPage, minResolution int) *SearchOptions {
	return &SearchOptions{
		Query:       query,
		PerPage:     perPage,
		MinWidth:    minResolution,
		MinHeight:   minResolution,
		SafeSearch:  true,
		ImageType:   "photo",
		Orientation: "all",
	}
}

// Provider defines the interface for image search backends
type Provider interface {
	// Search performs an image search with the given options
	Search(ctx context.Context, opts *SearchOptions) ([]Candidate, error)

	// Name returns the name of the search provider
	Name() string
}

// SearchError represents an error from an image search provider
type SearchError struct {
	Provider string
	Code     string
	Message  string
}

func (e *SearchError) Error() string {
	return e.Provider + ": " + e.Message
}

// RateLimitError indicates that the API rate limit has been exceeded
type RateLimitError struct {
	Provider     string
	RetryAfter   int // Seconds to wait before retry
	LimitPerHour int
}

func (e *RateLimitError) Error() string {
	return e.Provider + ": rate limit exceeded"
}

// MediaFileName derives a stable file name for a candidate used on a card
// about term. The extension is taken from the URL path, defaulting to .jpg.
func MediaFileName(term string, c Candidate) string {
	name := internal.SanitizeFilename(strings.ToLower(term))
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "image"
	}

	parts := []string{"flashpix", name, c.Provider}
	if c.ID != "" {
		parts = append(parts, internal.SanitizeFilename(c.ID))
	}

	return strings.Join(parts, "_") + extensionOf(c.URL)
}

func extensionOf(rawURL string) string {
	ext := ".jpg"
	if u, err := url.Parse(rawURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); e != "" && len(e) <= 5 {
			ext = e
		}
	}
	return ext
}
