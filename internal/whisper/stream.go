package whisper

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// record is the wire shape the helper emits: one info record first, then
// one record per segment, newline-delimited JSON.
type record struct {
	Type                string  `json:"type"`
	Language            string  `json:"language,omitempty"`
	LanguageProbability float64 `json:"language_probability,omitempty"`
	Duration            float64 `json:"duration,omitempty"`
	Start               float64 `json:"start,omitempty"`
	End                 float64 `json:"end,omitempty"`
	Text                string  `json:"text,omitempty"`
}

// Stream is a lazy sequence of segments backed by a running engine
// process. Next returns io.EOF after the last segment; at that point the
// process has been waited on and any failure it reported has surfaced.
type Stream struct {
	dec       *json.Decoder
	info      Info
	finishFn  func() error
	finished  bool
	finishErr error
}

func newStream(r io.Reader, finish func() error) *Stream {
	if finish == nil {
		finish = func() error { return nil }
	}
	return &Stream{dec: json.NewDecoder(r), finishFn: finish}
}

// Next returns the next segment in production order.
func (s *Stream) Next() (Segment, error) {
	for {
		var rec record
		if err := s.dec.Decode(&rec); err != nil {
			if ferr := s.finish(); ferr != nil {
				return Segment{}, ferr
			}
			if errors.Is(err, io.EOF) {
				return Segment{}, io.EOF
			}
			return Segment{}, fmt.Errorf("decode engine output: %w", err)
		}

		switch rec.Type {
		case "info":
			s.info = Info{
				Language:            rec.Language,
				LanguageProbability: rec.LanguageProbability,
				Duration:            rec.Duration,
			}
		case "segment":
			return Segment{Start: rec.Start, End: rec.End, Text: rec.Text}, nil
		default:
			// Unknown record types from a newer helper are skipped.
		}
	}
}

// Info returns the metadata record. It is complete once the first call to
// Next has returned, since the helper writes it before any segment.
func (s *Stream) Info() Info {
	return s.info
}

// Text drains the stream and returns all segment texts joined in order
// with no separator, trimmed of leading and trailing whitespace.
func (s *Stream) Text() (string, error) {
	var b strings.Builder
	for {
		seg, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		b.WriteString(seg.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

// Close releases the underlying process without draining the remaining
// segments. Safe to call after Next has returned io.EOF.
func (s *Stream) Close() error {
	return s.finish()
}

func (s *Stream) finish() error {
	if !s.finished {
		s.finished = true
		s.finishErr = s.finishFn()
	}
	return s.finishErr
}
