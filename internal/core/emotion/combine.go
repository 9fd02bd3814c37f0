package emotion

import (
	"math"

	perr "emolens/internal/platform/errors"
)

// RawPrediction is one model response: a logit per class and, per class head,
// the attention weights it spent on the input
type RawPrediction struct {
	Logits     []float64
	Attentions [][]float64
}

// Combine converts raw into percentages keyed by vocab.
//
//	p = softmax(logits)
//	w_i = p_i * sum(attentions[i])
//	score_i = 100 * w_i / sum(w)
//
// Shape mismatches and non-finite attentions are SampleFormat errors. A negative head,
// or a zero or non-finite total, is DegenerateScore, so every score is a percentage in [0,100].
func Combine(raw RawPrediction, vocab Vocabulary) (Scores, error) {
	n := len(raw.Logits)
	switch {
	case n == 0:
		return nil, perr.SampleFormatf("emotion: empty logits")
	case len(raw.Attentions) != n:
		return nil, perr.SampleFormatf("emotion: %d attention heads for %d logits", len(raw.Attentions), n)
	case vocab.Len() != n:
		return nil, perr.SampleFormatf("emotion: %d labels for %d logits", vocab.Len(), n)
	}

	p := softmax(raw.Logits)

	w := make([]float64, n)
	var total float64
	for i := range n {
		var a float64
		for _, x := range raw.Attentions[i] {
			a += x
		}
		switch {
		case math.IsNaN(a) || math.IsInf(a, 0):
			return nil, perr.SampleFormatf("emotion: attention head %d sums to %v", i, a)
		case a < 0:
			return nil, perr.DegenerateScoref("emotion: attention head %d sums to %v", i, a)
		}
		w[i] = p[i] * a
		total += w[i]
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, perr.DegenerateScoref("emotion: total weight %v", total)
	}

	out := make(Scores, n)
	for i, lbl := range vocab.Labels() {
		out[lbl] = w[i] * Budget / total
	}
	return out, nil
}

// softmax is max-shifted so large logits do not overflow
func softmax(x []float64) []float64 {
	m := math.Inf(-1)
	for _, v := range x {
		m = max(m, v)
	}
	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		out[i] = math.Exp(v - m)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
