package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	perr "emolens/internal/platform/errors"
	"emolens/internal/platform/objstore"
	"emolens/internal/services/segments/domain"
)

// Objects is the read side of the object store
type Objects interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Speakers reads segments from the diarization output document of an interview
type Speakers struct {
	obj Objects
}

// NewSpeakers constructs a speakers.json source
func NewSpeakers(obj Objects) *Speakers {
	if obj == nil {
		panic("segments: nil object store")
	}
	return &Speakers{obj: obj}
}

const maxSpeakersDoc = 16 << 20

// List implements domain.SourcePort. Speakers keep document order, parts are numbered from 0.
func (s *Speakers) List(ctx context.Context, ref domain.Ref) ([]domain.Segment, error) {
	key := objstore.Interview{Session: strconv.FormatInt(ref.SessionID, 10), Interview: strconv.FormatInt(ref.InterviewID, 10)}.Speakers()
	rc, err := s.obj.Get(ctx, key)
	if err != nil {
		return nil, perr.WithOp(err, "segments.Speakers.List")
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, maxSpeakersDoc))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "segments: read %s", key)
	}
	segs, err := ParseSpeakers(b, ref.InterviewID)
	if err != nil {
		return nil, perr.WithField(err, key)
	}
	return segs, nil
}

// ParseSpeakers decodes {"speaker_0": [[start, end], ...], ...} keeping key order
func ParseSpeakers(b []byte, interviewID int64) ([]domain.Segment, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "speakers: bad json")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, perr.InvalidArgf("speakers: want object, got %v", tok)
	}

	var out []domain.Segment
	seen := map[int]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "speakers: bad key")
		}
		name, _ := tok.(string)
		id, err := speakerID(name)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, perr.InvalidArgf("speakers: duplicate speaker %q", name)
		}
		seen[id] = true

		var parts [][]float64
		if err := dec.Decode(&parts); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "speakers: parts of %s", name)
		}
		for i, p := range parts {
			if len(p) != 2 || math.IsNaN(p[0]) || math.IsNaN(p[1]) {
				return nil, perr.InvalidArgf("speakers: %s part %d is not a [start, end] pair", name, i)
			}
			out = append(out, domain.Segment{
				InterviewID: interviewID,
				SpeakerID:   id,
				Part:        i,
				Start:       p[0],
				End:         p[1],
			})
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "speakers: unterminated object")
	}
	return out, nil
}

func speakerID(name string) (int, error) {
	_, num, ok := strings.Cut(name, "_")
	if !ok {
		return 0, perr.InvalidArgf("speakers: key %q is not speaker_N", name)
	}
	id, err := strconv.Atoi(num)
	if err != nil || id < 0 {
		return 0, perr.InvalidArgf("speakers: key %q is not speaker_N", name)
	}
	return id, nil
}
