package summarizer

import (
	"regexp"
	"strings"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
)

var (
	// markers may be wrapped in bold emphasis, "**FINAL SUMMARY:**"
	summaryMarker  = regexp.MustCompile(`(?i)(?:\*\*)?FINAL SUMMARY:(?:\*\*)?`)
	conceptsMarker = regexp.MustCompile(`(?i)(?:\*\*)?KEY CONCEPTS:(?:\*\*)?`)
	numberedItem   = regexp.MustCompile(`^\d+\.`)
)

// Parse extracts the summary and key concepts from a raw synthesis.
//
// When either marker is missing the whole raw text becomes the summary and
// no concepts are returned. Parse never fails.
func Parse(raw string) (result domain.SummaryResult) {
	defer func() {
		if r := recover(); r != nil {
			result = fallback(raw)
		}
	}()

	start := summaryMarker.FindStringIndex(raw)
	if start == nil {
		return fallback(raw)
	}
	rest := raw[start[1]:]

	end := conceptsMarker.FindStringIndex(rest)
	if end == nil {
		return fallback(raw)
	}

	return domain.SummaryResult{
		Summary:     strings.TrimSpace(rest[:end[0]]),
		KeyConcepts: parseConcepts(rest[end[1]:]),
		Structured:  true,
	}
}

func parseConcepts(section string) []string {
	concepts := make([]string, 0)
	for _, line := range strings.Split(section, "\n") {
		item, ok := bulletItem(strings.TrimSpace(line))
		if !ok {
			continue
		}
		if item = strings.TrimSpace(item); item != "" {
			concepts = append(concepts, item)
		}
	}
	return concepts
}

func bulletItem(line string) (string, bool) {
	for _, marker := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimPrefix(line, marker), true
		}
	}
	if loc := numberedItem.FindStringIndex(line); loc != nil {
		return line[loc[1]:], true
	}
	return "", false
}

func fallback(raw string) domain.SummaryResult {
	return domain.SummaryResult{Summary: raw, KeyConcepts: []string{}}
}
