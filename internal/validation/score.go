package validation

import "strings"

const (
	baseScore      = 50
	positiveWeight = 10
	negativeWeight = 15
	minScore       = 0
	maxScore       = 100
)

var positiveMarkers = []string{"compliant", "adequate", "proper", "correct", "complete"}

var negativeMarkers = []string{"missing", "incomplete", "non-compliant", "inadequate", "error"}

// Score derives a compliance score in [0, 100] from analysis text.
//
// Every occurrence of every marker counts, case-insensitively, and markers are
// counted independently: "incomplete" adds one positive ("complete") and one
// negative ("incomplete") hit.
func Score(analysis string) int {
	text := strings.ToLower(analysis)

	score := baseScore +
		positiveWeight*countMarkers(text, positiveMarkers) -
		negativeWeight*countMarkers(text, negativeMarkers)

	return max(minScore, min(maxScore, score))
}

func countMarkers(text string, markers []string) int {
	n := 0
	for _, m := range markers {
		n += strings.Count(text, m)
	}
	return n
}
