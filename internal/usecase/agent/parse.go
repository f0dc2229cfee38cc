package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/docsage-ai/docsage/internal/domain"
)

var decimalRe = regexp.MustCompile(`0?\.\d+|\d+\.\d+`)

// parseSearchDecision extracts the planner's verdict from free-form
// model output. It looks for the structured SEARCH marker first, then
// for a bare YES/NO at the start of the response. Anything else is
// Undetermined and left for the caller's fail-safe.
func parseSearchDecision(text string) domain.SearchDecision {
	up := strings.ToUpper(text)
	switch {
	case strings.Contains(up, "SEARCH: YES"):
		return domain.SearchRequired
	case strings.Contains(up, "SEARCH: NO"):
		return domain.SearchNotRequired
	}

	head := up
	if len(head) > 20 {
		head = head[:20]
	}
	switch {
	case strings.Contains(head, "YES"):
		return domain.SearchRequired
	case strings.Contains(head, "NO"):
		return domain.SearchNotRequired
	}
	return domain.SearchUndetermined
}

// parseConfidence extracts the first decimal number from the auditor's
// output, clamped to [0, 1]. Returns false if no number is present.
func parseConfidence(text string) (float64, bool) {
	match := decimalRe.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v, true
}
