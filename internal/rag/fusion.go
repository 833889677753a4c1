package rag

import (
	"sort"
)

// RRFConstant is the constant used in RRF formula: 1 / (k + rank)
// Standard value is 60, which provides a good balance between
// giving weight to top-ranked documents while not ignoring lower-ranked ones
const RRFConstant = 60

// fused accumulates one passage across ranked lists.
type fused struct {
	passage Passage
	score   float64
	first   int // Order of first appearance, for stable ties
}

// FuseRRF pools ranked passage lists, de-duplicating by passage text, and
// orders the union by Reciprocal Rank Fusion.
//
// RRF formula: score(d) = Σ (w_i / (k + rank_i))
// where k is RRFConstant (60), rank_i is the rank in list i (1-indexed),
// and w_i is the list weight (1 when weights is nil or too short).
//
// The kept passage is the one with the highest backend score. topN <= 0
// returns every unique passage.
func FuseRRF(lists [][]Passage, weights []float64, topN int) []Passage {
	byText := make(map[string]*fused)
	order := 0

	for li, list := range lists {
		w := 1.0
		if li < len(weights) {
			w = weights[li]
		}
		for i, p := range list {
			rank := i + 1
			score := w / float64(RRFConstant+rank)

			if existing, ok := byText[p.Text]; ok {
				existing.score += score
				if better(p.Score, existing.passage.Score) {
					existing.passage = p
				}
				continue
			}
			byText[p.Text] = &fused{passage: p, score: score, first: order}
			order++
		}
	}

	results := make([]*fused, 0, len(byText))
	for _, f := range byText {
		results = append(results, f)
	}

	// Sort by RRF score descending
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].first < results[j].first
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}

	out := make([]Passage, len(results))
	for i, f := range results {
		out[i] = f.passage
	}
	return out
}

func better(a, b *float64) bool {
	if a == nil {
		return false
	}
	return b == nil || *a > *b
}
