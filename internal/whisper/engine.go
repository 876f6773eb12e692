// Package whisper drives speech-to-text through the faster-whisper
// runtime (Whisper models on CTranslate2).
package whisper

import "context"

// Segment is one contiguous span of recognized speech.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Info is the per-file metadata the engine reports alongside the segments.
type Info struct {
	Language            string
	LanguageProbability float64
	Duration            float64
}

// Request holds the per-call transcription parameters. Model, device and
// compute type are engine construction parameters, not request parameters.
type Request struct {
	AudioPath string
	Language  string
	BeamSize  int
}

// Engine produces a segment stream for an audio file. The stream is lazy;
// callers that only want the full text use Stream.Text, which drains it
// in order.
type Engine interface {
	Transcribe(ctx context.Context, req Request) (*Stream, error)
}
