package emotion

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SampleID formats the id of the n-th scored sample in a segment
func SampleID(n int) string { return fmt.Sprintf("sample_%05d", n) }

// Aggregator folds per-sample scores for one segment. Not safe for concurrent use.
type Aggregator struct {
	ids     []string
	pos     []int
	samples []Scores
}

// NewAggregator returns an empty aggregator
func NewAggregator() *Aggregator { return &Aggregator{} }

// Add records s for the sample at pos and returns its id.
// Positions must strictly increase; anything else is a caller bug and panics.
func (a *Aggregator) Add(pos int, s Scores) string {
	if n := len(a.pos); n > 0 && pos <= a.pos[n-1] {
		panic(fmt.Sprintf("emotion: sample position %d after %d", pos, a.pos[n-1]))
	}
	id := SampleID(len(a.ids))
	a.ids = append(a.ids, id)
	a.pos = append(a.pos, pos)
	a.samples = append(a.samples, s)
	return id
}

// Len returns the number of samples added
func (a *Aggregator) Len() int { return len(a.ids) }

// Result snapshots the samples so far
func (a *Aggregator) Result() Aggregate {
	return Aggregate{ids: a.ids, pos: a.pos, samples: a.samples}.Result()
}

// Aggregate is the ordered sample id -> Scores mapping of one segment
type Aggregate struct {
	ids     []string
	pos     []int
	samples []Scores
}

// Len returns the number of samples
func (g Aggregate) Len() int { return len(g.ids) }

// IDs returns sample ids in order
func (g Aggregate) IDs() []string { return append([]string(nil), g.ids...) }

// Get returns the scores stored under id
func (g Aggregate) Get(id string) (Scores, bool) {
	for i, x := range g.ids {
		if x == id {
			return g.samples[i], true
		}
	}
	return nil, false
}

// Each calls fn for every sample in order
func (g Aggregate) Each(fn func(id string, pos int, s Scores)) {
	for i := range g.ids {
		fn(g.ids[i], g.pos[i], g.samples[i])
	}
}

// Mean averages every label over all samples. A label missing from a sample counts as 0.
// Empty aggregates yield an empty map.
func (g Aggregate) Mean() Scores {
	out := Scores{}
	if len(g.samples) == 0 {
		return out
	}
	for _, s := range g.samples {
		for k, v := range s {
			out[k] += v
		}
	}
	n := float64(len(g.samples))
	for k := range out {
		out[k] /= n
	}
	return out
}

// Normalized returns a copy with every sample map passed through Normalize
func (g Aggregate) Normalized() Aggregate {
	out := g.Result()
	for i, s := range out.samples {
		out.samples[i] = Normalize(s)
	}
	return out
}

// Result returns a copy
func (g Aggregate) Result() Aggregate {
	return Aggregate{
		ids:     append([]string(nil), g.ids...),
		pos:     append([]int(nil), g.pos...),
		samples: append([]Scores(nil), g.samples...),
	}
}

// MarshalJSON writes {"sample_00000": {...}, ...} in sample order
func (g Aggregate) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, id := range g.ids {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(id)
		v, err := json.Marshal(g.samples[i])
		if err != nil {
			return nil, fmt.Errorf("emotion: %s: %w", id, err)
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
