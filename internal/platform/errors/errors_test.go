package errors

import (
	stderrs "errors"
	"fmt"
	"testing"
)

func TestErrorCode_String(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrorCodeUnknown:         "unknown",
		ErrorCodeUnavailable:     "unavailable",
		ErrorCodeSampleFormat:    "sample_format",
		ErrorCodeDegenerateScore: "degenerate_score",
		ErrorCodeStreamOpen:      "stream_open",
		ErrorCodePersistence:     "persistence",
		9999:                     "code(9999)",
	}
	for c, want := range cases {
		if got := c.String(); got != want {
			t.Errorf("String(%d) = %q, want %q", uint16(c), got, want)
		}
	}
}

func TestErrorCode_SampleLevel(t *testing.T) {
	for c := ErrorCodeUnknown; c <= ErrorCodePersistence; c++ {
		want := c == ErrorCodeSampleFormat || c == ErrorCodeDegenerateScore
		if c.SampleLevel() != want {
			t.Errorf("%v.SampleLevel() = %v", c, !want)
		}
	}
}

func TestError_Render(t *testing.T) {
	var nilErr *Error
	cases := []struct {
		err  error
		want string
	}{
		{nilErr, "<nil>"},
		{New(ErrorCodeValidation, "interval must be positive"), "interval must be positive"},
		{Newf(ErrorCodeSampleFormat, "frame %d: empty", 12), "frame 12: empty"},
		{Wrap(stderrs.New("EOF"), ErrorCodeStreamOpen, "seek"), "seek: EOF"},
		{Wrapf(stderrs.New("EOF"), ErrorCodeStreamOpen, "seek frame %d", 40), "seek frame 40: EOF"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}
}

func TestAsAndCodeOf(t *testing.T) {
	cause := stderrs.New("connection reset")
	ours := Wrap(cause, ErrorCodeDB, "list results")

	if !stderrs.Is(ours, cause) {
		t.Fatal("wrapped cause lost")
	}
	if e, ok := As(fmt.Errorf("segment 3: %w", ours)); !ok || e.Code() != ErrorCodeDB {
		t.Fatal("As through fmt wrap")
	}
	if _, ok := As(cause); ok {
		t.Fatal("As true for foreign error")
	}
	if CodeOf(cause) != ErrorCodeUnknown || CodeOf(nil) != ErrorCodeUnknown {
		t.Fatal("foreign and nil errors are unknown")
	}

	joined := stderrs.Join(cause, StreamOpenf("open video"), Persistencef("write"))
	if CodeOf(joined) != ErrorCodeStreamOpen {
		t.Fatalf("joined code = %v, want first match", CodeOf(joined))
	}
	if !IsCode(ErrNotFound, ErrorCodeNotFound) {
		t.Fatal("ErrNotFound code")
	}
}

func TestWithFieldAndOp(t *testing.T) {
	base := InvalidArgf("interval must be positive")
	withField := WithField(base, "interval")
	withOp := WithOp(withField, "analyse.New")

	e, _ := As(withOp)
	if e.Field() != "interval" || e.Op() != "analyse.New" || e.Code() != ErrorCodeInvalidArgument {
		t.Fatalf("err = %+v", e)
	}
	if b, _ := As(base); b.Field() != "" || b.Op() != "" {
		t.Fatal("mutators changed the original")
	}

	foreign := stderrs.New("x")
	if WithOp(foreign, "op") != foreign || WithField(foreign, "f") != foreign {
		t.Fatal("foreign errors should pass through")
	}
}

func TestConstructors(t *testing.T) {
	cases := map[ErrorCode]error{
		ErrorCodeNotFound:        NotFoundf("x"),
		ErrorCodeInvalidArgument: InvalidArgf("x"),
		ErrorCodeValidation:      Validationf("x"),
		ErrorCodeDB:              DBf("x"),
		ErrorCodeUnavailable:     Unavailablef("x"),
		ErrorCodeSampleFormat:    SampleFormatf("x"),
		ErrorCodeDegenerateScore: DegenerateScoref("x"),
		ErrorCodeStreamOpen:      StreamOpenf("x"),
		ErrorCodePersistence:     Persistencef("x"),
	}
	for want, err := range cases {
		if !IsCode(err, want) {
			t.Errorf("code = %v, want %v", CodeOf(err), want)
		}
	}
}
