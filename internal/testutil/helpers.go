package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/flashpix/internal/image"
)

// Candidates returns n usable candidates from provider for term
func Candidates(provider, term string, n int) []image.Candidate {
	out := make([]image.Candidate, n)
	for i := range out {
		out[i] = image.Candidate{
			ID:             fmt.Sprintf("%s-%d", term, i),
			URL:            fmt.Sprintf("https://img.example/%s/%s-%d.jpg", provider, strings.ReplaceAll(term, " ", "_"), i),
			ThumbnailURL:   fmt.Sprintf("https://img.example/%s/%s-%d_thumb.jpg", provider, strings.ReplaceAll(term, " ", "_"), i),
			Width:          640,
			Height:         480,
			Provider:       provider,
			Tags:           term,
			FreelyLicensed: true,
		}
	}
	return out
}

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileContains checks if a file contains a substring
func AssertFileContains(t *testing.T, path string, substring string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if !strings.Contains(string(content), substring) {
		t.Errorf("File %s does not contain %q", path, substring)
	}
}
