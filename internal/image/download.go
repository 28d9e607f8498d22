package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DownloadOptions configures image download behavior
type DownloadOptions struct {
	OutputDir         string // Directory to save images
	OverwriteExisting bool   // Whether to overwrite existing files
	MaxSizeBytes      int64  // Maximum file size to download (0 = no limit)
}

// DefaultDownloadOptions returns sensible defaults for card media downloads
func DefaultDownloadOptions(outputDir string) *DownloadOptions {
	return &DownloadOptions{
		OutputDir:         outputDir,
		OverwriteExisting: false,
		MaxSizeBytes:      5 * 1024 * 1024, // 5MB
	}
}

// ErrTooLarge is returned when an image exceeds the configured size limit
var ErrTooLarge = errors.New("image exceeds maximum size")

// Downloader fetches chosen images to disk for offline export
type Downloader struct {
	httpClient *http.Client
	options    *DownloadOptions
}

// NewDownloader creates a new image downloader
func NewDownloader(options *DownloadOptions) *Downloader {
	if options == nil {
		options = DefaultDownloadOptions(".")
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		options:    options,
	}
}

// Fetch downloads imageURL into the output directory as fileName and
// returns the path written. An existing file is reused unless overwriting
// is enabled.
func (d *Downloader) Fetch(ctx context.Context, imageURL, fileName string) (string, error) {
	if err := os.MkdirAll(d.options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	outputPath := filepath.Join(d.options.OutputDir, filepath.Base(fileName))
	if !d.options.OverwriteExisting {
		if _, err := os.Stat(outputPath); err == nil {
			return outputPath, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	var reader io.Reader = resp.Body
	if d.options.MaxSizeBytes > 0 {
		// Read one byte past the limit to detect oversized images
		reader = io.LimitReader(resp.Body, d.options.MaxSizeBytes+1)
	}

	written, err := io.Copy(file, reader)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if d.options.MaxSizeBytes > 0 && written > d.options.MaxSizeBytes {
		os.Remove(outputPath)
		return "", fmt.Errorf("%w of %d bytes", ErrTooLarge, d.options.MaxSizeBytes)
	}

	return outputPath, nil
}
