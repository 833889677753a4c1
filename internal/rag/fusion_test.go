package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(text string, score float64) Passage {
	return Passage{Source: "src-" + text, Text: text, Score: ScorePtr(score)}
}

func TestFuseRRF_Deduplicates(t *testing.T) {
	t.Parallel()

	lists := [][]Passage{
		{p("a", 0.9), p("b", 0.8)},
		{p("b", 0.95), p("c", 0.5)},
	}

	got := FuseRRF(lists, nil, 0)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Text, "passage in both lists ranks first")
	assert.InDelta(t, 0.95, *got[0].Score, 1e-9, "best backend score is kept")
}

func TestFuseRRF_TopN(t *testing.T) {
	t.Parallel()

	lists := [][]Passage{{p("a", 0.9), p("b", 0.8), p("c", 0.7)}}
	got := FuseRRF(lists, nil, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
}

func TestFuseRRF_Weights(t *testing.T) {
	t.Parallel()

	lists := [][]Passage{
		{p("keyword", 3)},
		{p("vector", 0.8)},
	}
	got := FuseRRF(lists, []float64{0.4, 0.6}, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "vector", got[0].Text)
}

func TestFuseRRF_StableTies(t *testing.T) {
	t.Parallel()

	lists := [][]Passage{{p("x", 1)}, {p("y", 1)}, {p("z", 1)}}
	for range 5 {
		got := FuseRRF(lists, nil, 0)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"x", "y", "z"}, []string{got[0].Text, got[1].Text, got[2].Text})
	}
}

func TestFuseRRF_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FuseRRF(nil, nil, 3))
	assert.Empty(t, FuseRRF([][]Passage{{}, {}}, nil, 3))
}

func TestFuseRRF_NilScores(t *testing.T) {
	t.Parallel()

	lists := [][]Passage{
		{{Source: "s1", Text: "t"}},
		{{Source: "s2", Text: "t", Score: ScorePtr(0.5)}},
	}
	got := FuseRRF(lists, nil, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "s2", got[0].Source)
}
