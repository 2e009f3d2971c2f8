package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// StringSimilarity returns edit-distance similarity in [0,1], normalized by
// the longer string's length. Identical strings score 1.0, including two
// empty strings, which is a vacuous match callers must guard against. A
// single empty side scores 0.
func StringSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	longer, shorter := a, b
	if utf8.RuneCountInString(b) > utf8.RuneCountInString(a) {
		longer, shorter = b, a
	}
	n := utf8.RuneCountInString(longer)
	d := levenshtein.ComputeDistance(longer, shorter)
	return float64(n-d) / float64(n)
}

// NameSimilarity normalizes both names and blends whole-string edit
// similarity (0.6) with Jaccard token-set overlap (0.4). When either name
// normalizes to an empty token set, the edit similarity stands alone.
func NameSimilarity(name1, name2 string) float64 {
	if name1 == "" || name2 == "" {
		return 0
	}
	n1, n2 := Normalize(name1), Normalize(name2)
	if n1 == n2 {
		return 1
	}
	seq := StringSimilarity(n1, n2)

	t1, t2 := tokenSet(n1), tokenSet(n2)
	if len(t1) == 0 || len(t2) == 0 {
		return seq
	}
	inter := 0
	for t := range t1 {
		if t2[t] {
			inter++
		}
	}
	union := len(t1) + len(t2) - inter
	return seq*0.6 + float64(inter)/float64(union)*0.4
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

// AddressSimilarity case-folds and strips punctuation, then applies the same
// edit-distance primitive.
func AddressSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return StringSimilarity(foldText(a), foldText(b))
}

func foldText(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
}
