package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Assertion is a single extracted (name, score) claim from a report. It is
// transient pipeline state, never persisted directly.
type Assertion struct {
	RawName string `json:"raw_name"`
	Score   int    `json:"score"`
}

// nameRunPat matches a greedy-but-bounded run of name-like tokens: letters
// with periods, apostrophes and hyphens, joined by spaces and optional
// internal commas (for "Last, First"). Runs never cross a newline or a
// colon, and are capped at five tokens of twenty runes each.
const nameRunPat = `[A-Za-z][A-Za-z.'’-]{0,19}(?:,?[ \t]+[A-Za-z][A-Za-z.'’-]{0,19}){0,4}`

var (
	phase1PairRe = regexp.MustCompile(`(?i)(` + nameRunPat + `)[ \t]+trainee[ \t]+epa[ \t]*[:#-]?[ \t]*(\d+)`)

	// Whole-text fallback patterns, both orders.
	nameScoreRe = regexp.MustCompile(`(?i)(` + nameRunPat + `)[ \t]*[-–—,:]?[ \t]*(?:trainee[ \t]+)?epa[ \t]*[:#-]?[ \t]*(\d+)`)
	scoreNameRe = regexp.MustCompile(`(?i)\bepa[ \t]*[:#-]?[ \t]*(\d+)[ \t]*[-–—:][ \t]*(` + nameRunPat + `)`)

	// Structural words a greedy name run may have swallowed off its tail.
	trailingMarkerRe = regexp.MustCompile(`(?i)[\s,]*\btrainee\b[\s,]*$`)
)

// pairStrategy is one way of locating (name, score) pairs in a narrative.
type pairStrategy struct {
	name    string
	extract func(text string) []Assertion
}

// pairStrategies is evaluated in order with first-non-empty-wins semantics:
// the scoped pass over the personnel excerpt is authoritative, and the
// whole-text pass runs only when the scoped pass found nothing at all.
var pairStrategies = []pairStrategy{
	{"personnel_excerpt", extractScopedPairs},
	{"whole_text", extractWholeTextPairs},
}

// ExtractPairs returns every (raw name, EPA score) assertion found in the
// narrative. Scores outside 1-5 are discarded silently; reports legitimately
// contain other numeric text. The result is deliberately not deduplicated:
// repeated mentions resolve to the same participant downstream and the
// assignment engine is idempotent.
func ExtractPairs(text string) []Assertion {
	for _, strat := range pairStrategies {
		if pairs := strat.extract(text); len(pairs) > 0 {
			return pairs
		}
	}
	return nil
}

func extractScopedPairs(text string) []Assertion {
	excerpt := PersonnelExcerpt(text)
	if excerpt == "" {
		return nil
	}
	return collectPairs(phase1PairRe.FindAllStringSubmatch(excerpt, -1), 1, 2)
}

func extractWholeTextPairs(text string) []Assertion {
	pairs := collectPairs(nameScoreRe.FindAllStringSubmatch(text, -1), 1, 2)
	pairs = append(pairs, collectPairs(scoreNameRe.FindAllStringSubmatch(text, -1), 2, 1)...)
	return pairs
}

// collectPairs converts regex submatches into assertions, dropping
// out-of-range scores and empty names. nameIdx and scoreIdx select the
// capture groups, since the two fallback patterns capture in opposite order.
func collectPairs(matches [][]string, nameIdx, scoreIdx int) []Assertion {
	var out []Assertion
	for _, m := range matches {
		score, err := strconv.Atoi(m[scoreIdx])
		if err != nil || score < 1 || score > 5 {
			continue
		}
		name := trailingMarkerRe.ReplaceAllString(m[nameIdx], "")
		name = FlipLastFirst(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		out = append(out, Assertion{RawName: name, Score: score})
	}
	return out
}
