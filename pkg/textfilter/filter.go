// Package textfilter scrubs profanity out of narration before it lands in
// the session event log, so training transcripts stay publication-safe.
package textfilter

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// scrubbedPlaceholder replaces terms that have no readable stand-in.
const scrubbedPlaceholder = "[scrubbed]"

// tonedReplacements maps profanity the narrator tends to produce to
// table-safe stand-ins that keep the sentence readable. Genre slang is
// preferred over censor marks so the narration still scans.
var tonedReplacements = map[string]string{
	"fuck":         "frag",
	"fucking":      "fragging",
	"motherfucker": "fragger",
	"shit":         "slag",
	"bullshit":     "voidrot",
	"damn":         "dang",
	"goddamn":      "gods-dang",
	"hell":         "heck",
	"ass":          "hide",
	"asshole":      "wretch",
	"dumbass":      "fool",
	"jackass":      "fool",
	"bitch":        "wretch",
	"bastard":      "wretch",
	"prick":        "wretch",
	"crap":         "scrap",
	"piss":         "spit",
	"pissed":       "riled",
}

// redactedTerms are slurs and sexual terms. These are cut, not rewritten.
var redactedTerms = []string{
	"cock", "dick", "pussy", "tits", "whore", "slut",
	"fag", "retard", "nigger", "nigga", "spic", "chink", "kike",
}

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// Scrubber rewrites profanity in narration text. Whole words only, matched
// case-insensitively, with the original casing carried onto the stand-in.
type Scrubber struct {
	toned  []rule
	redact []*regexp.Regexp
}

// NewScrubber compiles the scrub vocabulary.
func NewScrubber() *Scrubber {
	s := &Scrubber{}

	words := make([]string, 0, len(tonedReplacements))
	for word := range tonedReplacements {
		words = append(words, word)
	}
	sort.Strings(words)
	for _, word := range words {
		s.toned = append(s.toned, rule{
			re:          wordPattern(word),
			replacement: tonedReplacements[word],
		})
	}
	for _, word := range redactedTerms {
		s.redact = append(s.redact, wordPattern(word))
	}
	return s
}

func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
}

// Scrub returns the narration with profanity replaced. Clean input comes
// back unchanged.
func (s *Scrubber) Scrub(text string) string {
	out := text
	for _, r := range s.toned {
		out = r.re.ReplaceAllStringFunc(out, func(match string) string {
			return matchCase(match, r.replacement)
		})
	}
	for _, re := range s.redact {
		out = re.ReplaceAllString(out, scrubbedPlaceholder)
	}
	return out
}

// Contains reports whether the text holds anything Scrub would rewrite.
func (s *Scrubber) Contains(text string) bool {
	for _, r := range s.toned {
		if r.re.MatchString(text) {
			return true
		}
	}
	for _, re := range s.redact {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// matchCase carries the casing of the matched word onto its stand-in:
// all-caps stays all-caps, a leading capital stays capitalized, everything
// else comes out lowercase.
func matchCase(original, replacement string) string {
	switch {
	case original == strings.ToUpper(original):
		return strings.ToUpper(replacement)
	case original == strings.ToLower(original):
		return replacement
	default:
		return cases.Title(language.English).String(replacement)
	}
}
