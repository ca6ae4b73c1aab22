// Package textutil implements the word-overlap scoring helpers the
// contradiction detector builds on, ported behavior-for-behavior from
// original_source/momo/src/intelligence/utils.rs.
package textutil

import "strings"

// ContentOverlapScore computes a Jaccard word-overlap score between a and b,
// ignoring single-character words. Identical empty word sets score 1.0;
// one empty and one non-empty scores 0.0.
func ContentOverlapScore(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)

	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

// FuzzyOverlapScore is like ContentOverlapScore but treats two words as
// matching when one is at least a 3-character prefix of the other, to
// absorb verb-form differences ("like" vs "likes").
func FuzzyOverlapScore(a, b string) float64 {
	wordsA := wordList(a)
	wordsB := wordList(b)

	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	matchedA := 0
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if fuzzyWordMatch(wa, wb) {
				matchedA++
				break
			}
		}
	}
	matchedB := 0
	for _, wb := range wordsB {
		for _, wa := range wordsA {
			if fuzzyWordMatch(wa, wb) {
				matchedB++
				break
			}
		}
	}

	minMatched := matchedA
	if matchedB < minMatched {
		minMatched = matchedB
	}
	maxMatched := matchedA
	if matchedB > maxMatched {
		maxMatched = matchedB
	}

	totalUnique := len(wordsA) + len(wordsB) - minMatched
	if totalUnique <= 0 {
		return 0
	}
	return float64(maxMatched) / float64(totalUnique)
}

func fuzzyWordMatch(a, b string) bool {
	if a == b {
		return true
	}
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	if minLen < 3 {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

func wordSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		if len(w) > 1 {
			out[w] = true
		}
	}
	return out
}

func wordList(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) > 1 {
			out = append(out, w)
		}
	}
	return out
}

// IsWordSubset reports whether every significant word (len > 1) in subset
// appears in superset.
func IsWordSubset(subset, superset string) bool {
	sub := wordList(subset)
	sup := wordSet(superset)
	if len(sub) == 0 {
		return true
	}
	for _, w := range sub {
		if !sup[w] {
			return false
		}
	}
	return true
}
