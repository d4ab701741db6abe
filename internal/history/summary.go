package history

import (
	"fmt"
	"strings"
)

// Summarize builds the human-readable summary of a delta snapshot, for
// example "+2, -1, ~3 shapes". When the session has more than one tab each
// affected tab is prefixed with its title (or "Tab N" if untitled) and the
// tabs are joined with "; ". An empty delta list yields SummaryNoChanges.
func Summarize(deltas []DocumentDelta, titles []string) string {
	if len(deltas) == 0 {
		return SummaryNoChanges
	}

	multiTab := len(titles) > 1 || len(deltas) > 1
	parts := make([]string, 0, len(deltas))
	for _, d := range deltas {
		line := summarizeDelta(d)
		if multiTab {
			line = tabLabel(d.TabIndex, titles) + ": " + line
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "; ")
}

func summarizeDelta(d DocumentDelta) string {
	var counts []string
	if n := len(d.Added); n > 0 {
		counts = append(counts, fmt.Sprintf("+%d", n))
	}
	if n := len(d.Removed); n > 0 {
		counts = append(counts, fmt.Sprintf("-%d", n))
	}
	if n := len(d.Modified); n > 0 {
		counts = append(counts, fmt.Sprintf("~%d", n))
	}

	var out string
	if len(counts) > 0 {
		out = strings.Join(counts, ", ") + " shapes"
	}
	if d.Viewport != nil {
		if out != "" {
			out += ", viewport"
		} else {
			out = "viewport"
		}
	}
	return out
}

func tabLabel(index int, titles []string) string {
	if index < len(titles) && titles[index] != "" {
		return titles[index]
	}
	return fmt.Sprintf("Tab %d", index+1)
}
