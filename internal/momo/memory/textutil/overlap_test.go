package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentOverlapScore(t *testing.T) {
	assert.InDelta(t, 1.0, ContentOverlapScore("hello world foo", "hello world foo"), 1e-9)
	assert.InDelta(t, 0.0, ContentOverlapScore("hello world", "foo bar baz"), 1e-9)
	score := ContentOverlapScore("user likes python", "user likes rust")
	assert.Greater(t, score, 0.3)
	assert.Less(t, score, 0.8)
}

func TestFuzzyOverlapScore(t *testing.T) {
	score := FuzzyOverlapScore("user likes python", "user like python")
	assert.Greater(t, score, 0.6)
}
