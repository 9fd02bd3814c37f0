// Package emotion turns model outputs into bounded emotion distributions.
//
// Flow per segment
//  1. Combine folds one RawPrediction into percentage Scores
//  2. an Aggregator collects Scores per sample in position order
//  3. Normalize caps the final distribution at 100
package emotion

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
)

// Budget is the total a distribution may not exceed
const Budget = 100.0

// budgetTol absorbs float drift so a rescaled map is never rescaled again
const budgetTol = 1e-9

// Scores maps a class label to a non-negative percentage
type Scores map[string]float64

// Entry is one label and its score
type Entry struct {
	Label string
	Score float64
}

// Sum totals all values
func (s Scores) Sum() float64 {
	var t float64
	for _, v := range s {
		t += v
	}
	return t
}

// Ranked returns entries by descending score, ties broken by label
func (s Scores) Ranked() []Entry {
	out := make([]Entry, 0, len(s))
	for k, v := range s {
		out = append(out, Entry{Label: k, Score: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Top returns the highest scoring entry; ok is false on an empty map
func (s Scores) Top() (Entry, bool) {
	r := s.Ranked()
	if len(r) == 0 {
		return Entry{}, false
	}
	return r[0], true
}

// MarshalJSON writes keys in ranked order so stored documents read top emotion first
func (s Scores) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range s.Ranked() {
		if math.IsNaN(e.Score) || math.IsInf(e.Score, 0) {
			return nil, &json.UnsupportedValueError{Str: e.Label}
		}
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Score)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Normalize caps s at Budget. A map within budget comes back as is; otherwise every
// value is scaled by Budget/sum into a new map. Idempotent.
func Normalize(s Scores) Scores {
	sum := s.Sum()
	if sum <= Budget+budgetTol {
		return s
	}
	f := Budget / sum
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v * f
	}
	return out
}
