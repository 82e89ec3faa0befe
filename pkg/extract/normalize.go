// Package extract provides the pure text extractors for EPA score sync:
// the name normalizer, the scan classifier, and the personnel/EPA pattern
// extractors. Every function here is a total function over its input text;
// none touches external state.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Leading honorifics and professional titles, repeated ("Prof. Dr. X").
	honorificRe = regexp.MustCompile(`(?i)\b(?:dr|doctor|professor|prof|mr|mrs|ms|mx)\.?\s+`)

	// Post-nominal credentials, usually comma-separated after the name.
	credentialRe = regexp.MustCompile(`(?i)(?:^|[,\s])(?:m\.?d|d\.?o|ph\.?d|r\.?n|p\.?a(?:-c)?|n\.?p|m\.?b\.?b\.?s|d\.?n\.?p|crna|facs)\.?(?:$|[,\s])`)

	// Training-level tokens like "PGY3", "PGY 1-5", "PGY6/7".
	pgyRe = regexp.MustCompile(`(?i)\bpgy[\s:]*[\d/\-]*`)

	// Everything that is not a letter, digit, apostrophe, hyphen or space.
	punctRe = regexp.MustCompile(`[^a-zA-Z0-9'\- ]+`)

	curlyQuoteReplacer = strings.NewReplacer("‘", "'", "’", "'", "“", `"`, "”", `"`)
)

// diacriticFolder decomposes accented letters and drops the combining marks,
// so "José" and "Jose" normalize identically.
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize maps a raw human-name string to its canonical comparison form.
// It is total and deterministic: two spellings of the same person that differ
// only in titles, credentials, training level, accents, punctuation, case or
// whitespace normalize to the same output. Step order matters; later steps
// assume the earlier cleanup has already happened.
func Normalize(raw string) string {
	s := curlyQuoteReplacer.Replace(raw)

	s = honorificRe.ReplaceAllString(s, " ")
	for {
		// credentialRe consumes a surrounding separator, so stacked
		// credentials ("MD, PhD") need repeated passes.
		next := credentialRe.ReplaceAllString(s, " ")
		if next == s {
			break
		}
		s = next
	}
	s = pgyRe.ReplaceAllString(s, " ")

	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}

	s = punctRe.ReplaceAllString(s, " ")
	s = strings.ToLower(s)

	words := strings.Fields(s)

	// Drop single-letter tokens (middle initials) so "Jane A. Smith" and
	// "Jane Smith" compare equal, unless that would empty the name.
	kept := words[:0]
	for _, w := range words {
		if len(w) > 1 || unicode.IsDigit(rune(w[0])) {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		kept = words
	}

	return strings.Join(kept, " ")
}

// nameSepRe splits multi-person strings on the separators the source system
// uses between names: ";", "/", "&" and the word "and".
var nameSepRe = regexp.MustCompile(`(?i)\s*(?:[;/&]|\band\b)\s*`)

// SplitNames splits a string that may hold several names joined by ";", "/",
// "&" or "and" into individual trimmed fragments. Empty fragments are dropped.
func SplitNames(s string) []string {
	parts := nameSepRe.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FlipLastFirst rewrites a "Last, First" name to "First Last". Names without
// a comma pass through unchanged.
func FlipLastFirst(name string) string {
	if !strings.Contains(name, ",") {
		return name
	}
	parts := strings.SplitN(name, ",", 2)
	last := strings.TrimSpace(parts[0])
	first := strings.TrimSpace(parts[1])
	if first == "" || last == "" {
		return strings.TrimSpace(strings.ReplaceAll(name, ",", " "))
	}
	return first + " " + last
}

var parentheticalRe = regexp.MustCompile(`\([^)]*\)`)

// CleanPersonName strips parenthetical asides, honorifics, credentials and
// PGY remnants from a single name fragment, flips "Last, First", and
// collapses whitespace. Unlike Normalize it preserves case, so the result is
// still presentable to a human.
func CleanPersonName(name string) string {
	s := parentheticalRe.ReplaceAllString(name, " ")
	s = curlyQuoteReplacer.Replace(s)
	s = honorificRe.ReplaceAllString(s, " ")
	for {
		next := credentialRe.ReplaceAllString(s, " ")
		if next == s {
			break
		}
		s = next
	}
	s = pgyRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, " \t.,;:-")
	s = FlipLastFirst(s)
	return strings.Join(strings.Fields(s), " ")
}
