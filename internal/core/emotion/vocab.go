package emotion

import (
	"strconv"
	"strings"
	"sync"
	"unicode"

	perr "emolens/internal/platform/errors"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Vocabulary is the ordered class label list of a model; index i labels logit i
type Vocabulary struct {
	labels []string
}

// pool of fresh transformer chains
var labelChains = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

// CanonicalLabel folds a model label into the stored key form: NFKC, case folded,
// marks stripped, inner whitespace collapsed to '_' ("Happy " -> "happy", "Very Sad" -> "very_sad")
func CanonicalLabel(s string) string {
	s = strings.ToValidUTF8(s, "")
	tr := labelChains.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	labelChains.Put(tr)
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), "_")
}

// NewVocabulary builds a vocabulary from labels in index order
func NewVocabulary(labels ...string) (Vocabulary, error) {
	if len(labels) == 0 {
		return Vocabulary{}, perr.InvalidArgf("emotion: empty vocabulary")
	}
	seen := make(map[string]int, len(labels))
	out := make([]string, len(labels))
	for i, l := range labels {
		c := CanonicalLabel(l)
		if c == "" {
			return Vocabulary{}, perr.InvalidArgf("emotion: blank label at index %d", i)
		}
		if j, dup := seen[c]; dup {
			return Vocabulary{}, perr.InvalidArgf("emotion: label %q at %d and %d", c, j, i)
		}
		seen[c] = i
		out[i] = c
	}
	return Vocabulary{labels: out}, nil
}

// FromID2Label builds a vocabulary from a model config id2label map ("0" -> "angry").
// Keys must cover 0..n-1 exactly.
func FromID2Label(m map[string]string) (Vocabulary, error) {
	labels := make([]string, len(m))
	filled := make([]bool, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || i < 0 || i >= len(m) {
			return Vocabulary{}, perr.InvalidArgf("emotion: id2label key %q out of range 0..%d", k, len(m)-1)
		}
		if filled[i] {
			return Vocabulary{}, perr.InvalidArgf("emotion: id2label index %d repeated", i)
		}
		labels[i], filled[i] = v, true
	}
	return NewVocabulary(labels...)
}

// Len returns the number of classes
func (v Vocabulary) Len() int { return len(v.labels) }

// Labels returns a copy of the labels in index order
func (v Vocabulary) Labels() []string { return append([]string(nil), v.labels...) }

// Label returns the label at index i
func (v Vocabulary) Label(i int) string { return v.labels[i] }
