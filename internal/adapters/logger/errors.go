package logger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/ui/style"
	"go.trai.ch/zerr"
)

// ErrorEntry is one link of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries walks the chain of err. zerr links contribute their own
// message and metadata; the first foreign error ends the walk with its full text.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	current := err

	for current != nil {
		if ze, ok := current.(*zerr.Error); ok {
			entries = append(entries, ErrorEntry{Message: ze.Message(), Metadata: ze.Metadata()})
			current = errors.Unwrap(current)
			continue
		}
		if targetErr, ok := current.(*domain.TargetError); ok {
			entries = append(entries, ErrorEntry{
				Message:  domain.ErrTargetFailed.Error(),
				Metadata: map[string]any{"target": targetErr.Target},
			})
			current = targetErr.Err
			continue
		}
		entries = append(entries, ErrorEntry{Message: current.Error()})
		break
	}

	return entries
}

// formatErrorEntries renders entries as a main error followed by its causes.
func formatErrorEntries(entries []ErrorEntry) string {
	lines := make([]string, 0, len(entries)*2)

	for i, entry := range entries {
		msgLines := strings.Split(entry.Message, "\n")

		prefix, indent := "Error: ", "       "
		if i > 0 {
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
			prefix, indent = "    "+style.Arrow+" ", "      "
		}

		lines = append(lines, prefix+msgLines[0])
		for _, line := range msgLines[1:] {
			lines = append(lines, indent+line)
		}
		for _, key := range slices.Sorted(maps.Keys(entry.Metadata)) {
			lines = append(lines, fmt.Sprintf("%s%s: %v", indent, key, entry.Metadata[key]))
		}
	}

	return strings.Join(lines, "\n")
}
