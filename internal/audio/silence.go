// Package audio implements near-silence detection for PCM WAV files, used
// to skip the transcription engine for clips that plainly contain no
// speech.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

// Metrics summarizes the amplitude of a WAV file's sample data.
type Metrics struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// IsSilentWAV reports whether the file's audio sits below thresholdDBFS.
// The peak level gets 6 dB of headroom over the RMS threshold so a short
// click does not defeat the gate.
func IsSilentWAV(path string, thresholdDBFS float64) (bool, Metrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, Metrics{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	metrics, err := Analyze(f)
	if err != nil {
		return false, Metrics{}, err
	}

	if metrics.Samples == 0 {
		return true, metrics, nil
	}
	if math.IsInf(metrics.RMSdBFS, -1) && math.IsInf(metrics.PeakdBFS, -1) {
		return true, metrics, nil
	}

	peakGate := thresholdDBFS + 6
	return metrics.RMSdBFS <= thresholdDBFS && metrics.PeakdBFS <= peakGate, metrics, nil
}

type wavFormat struct {
	audioFormat   uint16
	bitsPerSample uint16
}

// Analyze computes amplitude metrics for a RIFF/WAVE stream.
func Analyze(r io.ReadSeeker) (Metrics, error) {
	format, data, err := readWAV(r)
	if err != nil {
		return Metrics{}, err
	}

	decode, width, err := sampleDecoder(format)
	if err != nil {
		return Metrics{}, err
	}

	var peak, sumSquares float64
	var samples int64
	for i := 0; i+width <= len(data); i += width {
		value := decode(data[i : i+width])
		if abs := math.Abs(value); abs > peak {
			peak = abs
		}
		sumSquares += value * value
		samples++
	}

	if samples == 0 {
		return Metrics{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}, nil
	}

	rms := math.Sqrt(sumSquares / float64(samples))
	return Metrics{
		RMSdBFS:  amplitudeToDBFS(rms),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  samples,
	}, nil
}

// readWAV walks the chunk list and returns the format descriptor plus the
// raw contents of the data chunk.
func readWAV(r io.ReadSeeker) (wavFormat, []byte, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return wavFormat{}, nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return wavFormat{}, nil, fmt.Errorf("read wav header: %w", err)
	}
	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return wavFormat{}, nil, ErrInvalidWAV
	}

	var (
		format     wavFormat
		dataOffset int64
		dataSize   uint32
		hasFmt     bool
		hasData    bool
	)

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(r, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return wavFormat{}, nil, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		chunkStart, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return wavFormat{}, nil, fmt.Errorf("seek wav chunk start: %w", err)
		}

		// Chunks are word-aligned; odd sizes carry a padding byte.
		skip := int64(chunkSize)
		if chunkSize%2 != 0 {
			skip++
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return wavFormat{}, nil, ErrInvalidWAV
			}
			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, buf); err != nil {
				return wavFormat{}, nil, fmt.Errorf("read wav fmt chunk: %w", err)
			}
			format.audioFormat = binary.LittleEndian.Uint16(buf[0:2])
			format.bitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
			hasFmt = true
			if chunkSize%2 != 0 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return wavFormat{}, nil, fmt.Errorf("seek wav fmt padding: %w", err)
				}
			}
		case "data":
			dataOffset = chunkStart
			dataSize = chunkSize
			hasData = true
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return wavFormat{}, nil, fmt.Errorf("seek wav data chunk: %w", err)
			}
		default:
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return wavFormat{}, nil, fmt.Errorf("seek wav chunk %s: %w", chunkID, err)
			}
		}
	}

	if !hasFmt || !hasData {
		return wavFormat{}, nil, ErrInvalidWAV
	}

	if _, err := r.Seek(dataOffset, io.SeekStart); err != nil {
		return wavFormat{}, nil, fmt.Errorf("seek wav data offset: %w", err)
	}
	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return wavFormat{}, nil, fmt.Errorf("read wav data: %w", err)
	}

	return format, data, nil
}

// sampleDecoder picks the normalization for one sample frame. Supported:
// integer PCM at 8/16/24/32 bits and IEEE float at 32/64 bits.
func sampleDecoder(format wavFormat) (func([]byte) float64, int, error) {
	const (
		formatPCM   = 1
		formatFloat = 3
	)

	switch format.audioFormat {
	case formatFloat:
		switch format.bitsPerSample {
		case 32:
			return func(b []byte) float64 {
				return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
			}, 4, nil
		case 64:
			return func(b []byte) float64 {
				return math.Float64frombits(binary.LittleEndian.Uint64(b))
			}, 8, nil
		}
	case formatPCM:
		switch format.bitsPerSample {
		case 8:
			return func(b []byte) float64 {
				return (float64(b[0]) - 128.0) / 128.0
			}, 1, nil
		case 16:
			return func(b []byte) float64 {
				return float64(int16(binary.LittleEndian.Uint16(b))) / 32768.0
			}, 2, nil
		case 24:
			return func(b []byte) float64 {
				v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
				if v&0x800000 != 0 {
					v |= ^0xFFFFFF
				}
				return float64(v) / 8388608.0
			}, 3, nil
		case 32:
			return func(b []byte) float64 {
				return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648.0
			}, 4, nil
		}
	}

	return nil, 0, ErrUnsupportedWAV
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
