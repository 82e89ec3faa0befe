package extract

import (
	"regexp"
	"strings"
)

var (
	personnelHeaderRe = regexp.MustCompile(`(?i)procedural\s+personnel`)
	blankLineRe       = regexp.MustCompile(`\n[ \t]*\n`)

	appLineRe       = regexp.MustCompile(`(?im)^.*advanced\s+practice\s+provider.*$`)
	attendingLineRe = regexp.MustCompile(`(?i)\battendings?\b`)
	attendingLblRe  = regexp.MustCompile(`(?i)^.*?attendings?(?:\s+physicians?)?\s*:?\s*`)

	// Roster label lines naming the trainee cohort, e.g. "Resident(s) PGY6/7",
	// "Resident(s) PGY1-5", or the bare "Resident(s) PGY..." variant.
	rosterLabelRe = regexp.MustCompile(`(?i)resident\(?s?\)?\s*(?:pgy[\s:]*[\d/\-]*)?\s*:?`)

	// Field boundaries that end a name value when the extractor has bled into
	// an adjacent field.
	traineeEPAMarkRe = regexp.MustCompile(`(?i)trainee\s+epa`)
	fieldBoundaryRe  = regexp.MustCompile(`(?i)trainee\s+epa|\bepa\b|advanced\s+practice\s+provider`)
)

// PersonnelExcerpt returns the substring of the narrative starting at the
// "Procedural Personnel" header and ending at the next blank line, or at the
// end of text when no blank line follows. It returns "" when the narrative
// has no personnel roster; extraction then has nothing to scope to.
func PersonnelExcerpt(text string) string {
	loc := personnelHeaderRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[0]:]
	if end := blankLineRe.FindStringIndex(rest); end != nil {
		return rest[:end[0]]
	}
	return rest
}

// ExtractAttending pulls the attending physician name(s) out of the personnel
// excerpt. Multiple attendings are rejoined with "; " after cleanup and
// first-seen deduplication. Returns "" when the report names no attending.
func ExtractAttending(text string) string {
	excerpt := PersonnelExcerpt(text)
	if excerpt == "" {
		return ""
	}

	// Advanced practice providers are rostered next to attendings but are
	// not attendings; drop their sub-lines before locating the field.
	excerpt = appLineRe.ReplaceAllString(excerpt, "")

	var value string
	for _, line := range strings.Split(excerpt, "\n") {
		if !attendingLineRe.MatchString(line) {
			continue
		}
		if idx := strings.Index(line, ":"); idx >= 0 {
			value = line[idx+1:]
		} else {
			value = attendingLblRe.ReplaceAllString(line, "")
		}
		break
	}
	if strings.TrimSpace(value) == "" {
		return ""
	}

	// Guard against the value running into the EPA field on the same line.
	if loc := traineeEPAMarkRe.FindStringIndex(value); loc != nil {
		value = value[:loc[0]]
	}

	return joinCleanNames(SplitNames(value), map[string]bool{
		"none": true, "n a": true, "na": true,
	})
}

// traineeFillers are roster tokens that survive label stripping but are not
// names.
var traineeFillers = map[string]bool{
	"none": true, "n a": true, "na": true,
	"resident": true, "residents": true, "resident s": true,
}

// ExtractTrainee pulls the trainee name(s) out of the personnel excerpt by
// matching roster label lines ("Resident(s) PGY...") and taking the value
// after the label, either on the same line or on the next non-empty,
// non-label line. When no roster line matches it falls back to the name run
// immediately preceding a "Trainee EPA: <score>" marker. Returns "" when
// nothing usable is found.
func ExtractTrainee(text string) string {
	excerpt := PersonnelExcerpt(text)
	if excerpt == "" {
		return ""
	}

	lines := strings.Split(excerpt, "\n")
	var values []string
	matchedRoster := false

	for i, line := range lines {
		loc := rosterLabelRe.FindStringIndex(line)
		if loc == nil {
			continue
		}
		matchedRoster = true

		value := strings.TrimSpace(line[loc[1]:])
		if value == "" {
			// Value is on the following line; skip blank and label lines.
			for j := i + 1; j < len(lines); j++ {
				next := strings.TrimSpace(lines[j])
				if next == "" {
					continue
				}
				if rosterLabelRe.MatchString(next) || attendingLineRe.MatchString(next) || appLineRe.MatchString(next) {
					break
				}
				value = next
				break
			}
		}
		if value != "" {
			values = append(values, value)
		}
	}

	if matchedRoster {
		var fragments []string
		for _, v := range values {
			if loc := fieldBoundaryRe.FindStringIndex(v); loc != nil {
				v = v[:loc[0]]
			}
			fragments = append(fragments, SplitNames(v)...)
		}
		return joinCleanNames(fragments, traineeFillers)
	}

	// Fallback: the name run right before "Trainee EPA: n" in the excerpt.
	m := phase1PairRe.FindStringSubmatch(excerpt)
	if m == nil {
		return ""
	}
	name := CleanPersonName(m[1])
	lower := strings.ToLower(name)
	if name == "" ||
		strings.Contains(lower, "resident") ||
		strings.Contains(lower, "trainee") ||
		strings.Contains(lower, "epa") {
		// The fallback captured roster structure, not a name.
		return ""
	}
	return name
}

// joinCleanNames cleans each fragment, drops fillers, dedupes preserving
// first-seen order, and rejoins with "; ".
func joinCleanNames(fragments []string, fillers map[string]bool) string {
	seen := make(map[string]bool, len(fragments))
	var out []string
	for _, frag := range fragments {
		name := CleanPersonName(frag)
		if name == "" {
			continue
		}
		key := Normalize(name)
		if key == "" || fillers[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return strings.Join(out, "; ")
}
