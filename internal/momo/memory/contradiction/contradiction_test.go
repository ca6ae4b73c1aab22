package contradiction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegationContradictions(t *testing.T) {
	d := New()

	cases := []struct {
		name     string
		existing string
		newer    string
	}{
		{"doesnt", "User likes Python", "User doesn't like Python"},
		{"does_not", "User likes Python", "User does not like Python"},
		{"reverse", "User doesn't like Python", "User likes Python"},
		{"never", "User drinks coffee every morning", "User never drinks coffee"},
		{"isnt", "User is a vegetarian", "User isn't a vegetarian"},
		{"no_longer", "User uses Vim", "User no longer uses Vim"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, ResultLikely, d.Check(tc.existing, tc.newer))
		})
	}
}

func TestSentimentFlip(t *testing.T) {
	d := New()
	assert.Equal(t, ResultLikely, d.Check("User likes JavaScript", "User hates JavaScript"))
	assert.Equal(t, ResultLikely, d.Check("User loves Go", "User dislikes Go"))
	assert.Equal(t, ResultLikely, d.Check("User enjoys running", "User hates running"))
}

func TestAntonymContradictions(t *testing.T) {
	d := New()
	assert.Equal(t, ResultLikely, d.Check("The weather is hot today", "The weather is cold today"))
	assert.Equal(t, ResultLikely, d.Check("User prefers light mode", "User prefers dark mode"))
	assert.Equal(t, ResultLikely, d.Check("I love mornings", "I hate mornings"))
	assert.Equal(t, ResultLikely, d.Check("User always uses tabs", "User never uses tabs"))
	assert.Equal(t, ResultLikely, d.Check("Dark mode is enabled", "Dark mode is disabled"))
	assert.Equal(t, ResultLikely, d.Check("User is happy with the result", "User is sad with the result"))
	assert.Equal(t, ResultLikely, d.Check("The food is good", "The food is bad"))
}

func TestValueContradictions(t *testing.T) {
	d := New()
	assert.Equal(t, ResultUnlikely, d.Check("User's favorite color is blue", "User's favorite color is red"))
	assert.Equal(t, ResultUnlikely, d.Check("User's age is 25", "User's age is 30"))
}

func TestNoFalsePositives(t *testing.T) {
	d := New()
	assert.Equal(t, ResultNone, d.Check("User likes Python", "User likes Rust"))
	assert.Equal(t, ResultNone, d.Check("User prefers dark mode", "User prefers dark mode"))
	assert.Equal(t, ResultNone, d.Check("User lives in San Francisco", "User works at Google"))
	assert.Equal(t, ResultNone, d.Check("User likes coffee", "User also likes tea"))
	assert.Equal(t, ResultNone, d.Check("User is a software engineer", "User is a senior software engineer"))
	assert.NotEqual(t, ResultLikely, d.Check("The weather is hot today", "User prefers cold brew coffee"))
}

func TestCaseInsensitive(t *testing.T) {
	d := New()
	assert.Equal(t, ResultLikely, d.Check("User LIKES Python", "User DOESN'T like Python"))
}

func TestEdgeCases(t *testing.T) {
	d := New()
	assert.Equal(t, ResultNone, d.Check("", ""))
	assert.Equal(t, ResultNone, d.Check("User likes Python", ""))
}
