package workflow

import (
	"fmt"
	"strings"
)

// ItemFailure describes an item the store rejected
type ItemFailure struct {
	Item SourceItem
	Err  error
}

// CommitResult counts what happened to every item of a committed run.
// Created + Duplicates + Skipped + Failed always equals the item count.
type CommitResult struct {
	Created    int
	Duplicates int
	Skipped    int
	Failed     int
	Failures   []ItemFailure
}

// Total returns the number of items accounted for
func (r CommitResult) Total() int {
	return r.Created + r.Duplicates + r.Skipped + r.Failed
}

// Summary renders the non-zero counters in a fixed order
func (r CommitResult) Summary() string {
	var parts []string
	if r.Created > 0 {
		parts = append(parts, fmt.Sprintf("%d cards created", r.Created))
	}
	if r.Duplicates > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicates skipped", r.Duplicates))
	}
	if r.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d items skipped (no image)", r.Skipped))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.Failed))
	}
	if len(parts) == 0 {
		return "No cards created"
	}
	return strings.Join(parts, ", ")
}
