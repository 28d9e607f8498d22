package batch

import (
	"fmt"
	"os"
	"strings"
)

// DefaultMaxItems is the largest selection processed in one run
const DefaultMaxItems = 50

// TooManyItemsError is returned when a selection exceeds the item cap
type TooManyItemsError struct {
	Count int
	Max   int
}

func (e *TooManyItemsError) Error() string {
	return fmt.Sprintf("too many items selected: %d, please select %d or fewer items for batch processing", e.Count, e.Max)
}

// SplitItems splits text into one item per line. Lines that hold nothing
// but dashes and whitespace are dropped.
func SplitItems(text string) []string {
	var items []string
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		if isBlank(line) {
			continue
		}
		items = append(items, line)
	}
	return items
}

// ParseList returns the entries of a bulleted list. Only lines starting
// with '-' or '*' count; the marker is removed.
func ParseList(text string) []string {
	var items []string
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "*") {
			continue
		}
		if item := strings.TrimSpace(line[1:]); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ReadItemsFile reads items from a file, one per line. With list set only
// bulleted lines are read.
func ReadItemsFile(filename string, list bool) ([]string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}

	if list {
		return ParseList(string(content)), nil
	}
	return SplitItems(string(content)), nil
}

// Cap rejects item lists longer than max. A max below one disables the check.
func Cap(items []string, max int) ([]string, error) {
	if max > 0 && len(items) > max {
		return nil, &TooManyItemsError{Count: len(items), Max: max}
	}
	return items, nil
}

// splitLines splits on \n, \r\n and lone \r
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(strings.ReplaceAll(line, "-", "")) == ""
}
