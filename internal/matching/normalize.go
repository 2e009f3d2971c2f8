package matching

import (
	"regexp"
	"strings"
)

var (
	stopWordsRe = regexp.MustCompile(`\b(the|hotel|inn|resort|suites?|lodge|motel|hostel|by|and)\b`)
	nonAlnumRe  = regexp.MustCompile(`[^a-z0-9\s]`)
	spacesRe    = regexp.MustCompile(`\s+`)
)

// Expanded as whole tokens, after punctuation stripping, so "St." and "st"
// both land on "street".
var abbreviations = map[string]string{
	"st":   "street",
	"rd":   "road",
	"ave":  "avenue",
	"blvd": "boulevard",
	"intl": "international",
	"ctr":  "center",
	"ctre": "centre",
	"apt":  "apartment",
}

// Normalize canonicalizes a raw hotel name for comparison. It is
// deterministic and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	s := strings.ToLower(name)
	s = stopWordsRe.ReplaceAllString(s, "")
	s = nonAlnumRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
	if s == "" {
		return s
	}
	toks := strings.Split(s, " ")
	for i, t := range toks {
		if full, ok := abbreviations[t]; ok {
			toks[i] = full
		}
	}
	return strings.Join(toks, " ")
}
