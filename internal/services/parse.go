package services

import (
	"regexp"
	"strings"
)

// NumberedLabelPattern matches list labels in either Latin or Persian
// numerals, with or without a leading kind word (e.g. "2." / "۲)" /
// "سناریو ۱:").
var NumberedLabelPattern = regexp.MustCompile(`(?m)^\s*(?:سناریو|کپشن|ایده|روز)?\s*[0-9۰-۹]+\s*[\.\):：:-]`)

var blankLineSplit = regexp.MustCompile(`\n\s*\n`)

// ParseVariants splits a free-text generator reply into at most expectedCount
// variants. Three tiers, never fails:
//  1. split on label matches, pairing each label with the text up to the next;
//  2. if that yields fewer than expectedCount items, split on blank-line
//     delimited paragraphs;
//  3. if still empty, the whole trimmed reply is the single variant.
func ParseVariants(text string, expectedCount int, labelPattern *regexp.Regexp) []string {
	if labelPattern == nil {
		labelPattern = NumberedLabelPattern
	}
	trimmed := strings.TrimSpace(text)
	if expectedCount < 1 {
		expectedCount = 1
	}

	var parsed []string
	locs := labelPattern.FindAllStringIndex(trimmed, -1)
	for i, loc := range locs {
		end := len(trimmed)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		item := strings.TrimSpace(trimmed[loc[0]:end])
		if item != "" {
			parsed = append(parsed, item)
		}
	}

	if len(parsed) < expectedCount {
		var paragraphs []string
		for _, chunk := range blankLineSplit.Split(trimmed, -1) {
			if c := strings.TrimSpace(chunk); c != "" {
				paragraphs = append(paragraphs, c)
			}
		}
		if len(paragraphs) > len(parsed) {
			parsed = paragraphs
		}
	}

	if len(parsed) == 0 {
		return []string{trimmed}
	}
	if len(parsed) > expectedCount {
		parsed = parsed[:expectedCount]
	}
	return parsed
}
