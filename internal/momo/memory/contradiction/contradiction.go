// Package contradiction implements Momo's heuristic contradiction
// detector: fast, pure pattern matching with no embeddings and no LLM
// calls, ported behavior-for-behavior from
// original_source/momo/src/intelligence/contradiction.rs.
package contradiction

import (
	"strings"

	"momo/internal/momo/memory/textutil"
)

// Result is the outcome of a heuristic contradiction check.
type Result string

const (
	ResultNone     Result = "none"
	ResultUnlikely Result = "unlikely"
	ResultLikely   Result = "likely"
)

// IsContradiction reports whether r represents a confirmed contradiction.
func (r Result) IsContradiction() bool { return r == ResultLikely }

type antonymPair struct {
	a, b string
}

var antonymPairs = []antonymPair{
	{"love", "hate"},
	{"like", "dislike"},
	{"hot", "cold"},
	{"always", "never"},
	{"happy", "sad"},
	{"good", "bad"},
	{"fast", "slow"},
	{"big", "small"},
	{"tall", "short"},
	{"light", "dark"},
	{"open", "closed"},
	{"true", "false"},
	{"yes", "no"},
	{"enable", "disable"},
	{"enabled", "disabled"},
	{"active", "inactive"},
	{"prefer", "avoid"},
	{"start", "stop"},
	{"accept", "reject"},
	{"allow", "block"},
}

var negationPhrases = []string{
	"doesn't", "does not",
	"don't", "do not",
	"isn't", "is not",
	"wasn't", "was not",
	"won't", "will not",
	"can't", "cannot", "can not",
	"never",
	"no longer",
	"hates",
	"dislikes",
	"not",
}

var sentimentPairs = [][2]string{
	{"likes", "hates"},
	{"likes", "dislikes"},
	{"loves", "hates"},
	{"loves", "dislikes"},
	{"enjoys", "hates"},
	{"enjoys", "dislikes"},
	{"prefers", "avoids"},
	{"wants", "doesn't want"},
}

var pivots = []string{" is ", " are ", " was ", " were "}

// Detector implements the heuristic contradiction check. It holds no
// state; a zero value is ready to use.
type Detector struct{}

// New returns a ready-to-use Detector.
func New() *Detector { return &Detector{} }

// Check compares existing and new memory content and returns a contradiction
// signal. It is advisory: only the Relationship Detector can cause a
// version-chain change.
func (d *Detector) Check(existingContent, newContent string) Result {
	existing := strings.ToLower(existingContent)
	newer := strings.ToLower(newContent)

	if existing == newer {
		return ResultNone
	}

	if r, ok := d.checkNegation(existing, newer); ok {
		return r
	}
	if r, ok := d.checkAntonym(existing, newer); ok {
		return r
	}
	if r, ok := d.checkValue(existing, newer); ok {
		return r
	}
	return ResultNone
}

func (d *Detector) checkNegation(existing, newer string) (Result, bool) {
	for _, phrase := range negationPhrases {
		if !containsAnyNegation(existing) && strings.Contains(newer, phrase) {
			stripped := stripNegation(newer, phrase)
			if textutil.FuzzyOverlapScore(existing, stripped) >= 0.5 {
				return ResultLikely, true
			}
		}
		if strings.Contains(existing, phrase) && !containsAnyNegation(newer) {
			stripped := stripNegation(existing, phrase)
			if textutil.FuzzyOverlapScore(newer, stripped) >= 0.5 {
				return ResultLikely, true
			}
		}
	}
	if d.checkSentimentFlip(existing, newer) {
		return ResultLikely, true
	}
	return ResultNone, false
}

func (d *Detector) checkSentimentFlip(existing, newer string) bool {
	for _, pair := range sentimentPairs {
		positive, negative := pair[0], pair[1]
		if (strings.Contains(existing, positive) && strings.Contains(newer, negative)) ||
			(strings.Contains(existing, negative) && strings.Contains(newer, positive)) {
			existingStripped := strings.ReplaceAll(strings.ReplaceAll(existing, positive, ""), negative, "")
			newStripped := strings.ReplaceAll(strings.ReplaceAll(newer, positive, ""), negative, "")
			if textutil.ContentOverlapScore(existingStripped, newStripped) > 0.5 {
				return true
			}
		}
	}
	return false
}

func (d *Detector) checkAntonym(existing, newer string) (Result, bool) {
	for _, pair := range antonymPairs {
		aInExisting := strings.Contains(existing, pair.a)
		bInExisting := strings.Contains(existing, pair.b)
		aInNew := strings.Contains(newer, pair.a)
		bInNew := strings.Contains(newer, pair.b)

		crossMatch := (aInExisting && bInNew && !bInExisting && !aInNew) ||
			(bInExisting && aInNew && !aInExisting && !bInNew)
		if !crossMatch {
			continue
		}

		existingStripped := strings.ReplaceAll(strings.ReplaceAll(existing, pair.a, ""), pair.b, "")
		newStripped := strings.ReplaceAll(strings.ReplaceAll(newer, pair.a, ""), pair.b, "")
		overlap := textutil.ContentOverlapScore(existingStripped, newStripped)
		if overlap > 0.5 {
			return ResultLikely, true
		} else if overlap > 0.3 {
			return ResultUnlikely, true
		}
	}
	return ResultNone, false
}

func (d *Detector) checkValue(existing, newer string) (Result, bool) {
	for _, pivot := range pivots {
		exPos := strings.Index(existing, pivot)
		newPos := strings.Index(newer, pivot)
		if exPos < 0 || newPos < 0 {
			continue
		}
		exSubject := existing[:exPos]
		newSubject := newer[:newPos]
		exValue := strings.TrimSpace(existing[exPos+len(pivot):])
		newValue := strings.TrimSpace(newer[newPos+len(pivot):])

		if textutil.ContentOverlapScore(exSubject, newSubject) > 0.7 &&
			exValue != "" && newValue != "" &&
			exValue != newValue &&
			!strings.Contains(exValue, newValue) &&
			!strings.Contains(newValue, exValue) &&
			!textutil.IsWordSubset(exValue, newValue) &&
			!textutil.IsWordSubset(newValue, exValue) {
			return ResultUnlikely, true
		}
	}
	return ResultNone, false
}

func containsAnyNegation(s string) bool {
	for _, phrase := range negationPhrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

func stripNegation(s, negation string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, negation, "")), " ")
}
