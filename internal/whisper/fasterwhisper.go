package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "embed"

	"go.uber.org/zap"
)

// Defaults mirror the fixed configuration the tool ships with: the large
// multilingual model on a CUDA device with half-precision weights,
// Ukrainian audio, beam search width 5.
const (
	DefaultModel       = "large-v3"
	DefaultDevice      = "cuda"
	DefaultComputeType = "float16"
	DefaultLanguage    = "uk"
	DefaultBeamSize    = 5
)

// ErrRuntimeMissing reports that the faster-whisper runtime cannot be
// loaded at all, as opposed to a transcription that started and failed.
var ErrRuntimeMissing = errors.New("faster-whisper runtime is not available; install Python 3 and run `pip install faster-whisper`")

//go:embed assets/transcribe.py
var helperScript []byte

// Config holds the engine construction parameters. Zero values fall back
// to the defaults above; Python falls back to UKSCRIBE_PYTHON and then to
// the interpreter on PATH.
type Config struct {
	Model       string
	Device      string
	ComputeType string
	Python      string
}

// FasterWhisperEngine runs transcriptions by handing the audio file to a
// Python helper that loads faster-whisper and streams segments back as
// newline-delimited JSON.
type FasterWhisperEngine struct {
	python      string
	model       string
	device      string
	computeType string
	logger      *zap.Logger
}

var _ Engine = (*FasterWhisperEngine)(nil)

func NewFasterWhisperEngine(cfg Config, logger *zap.Logger) (*FasterWhisperEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	python := strings.TrimSpace(cfg.Python)
	if python == "" {
		resolved, err := ResolvePython()
		if err != nil {
			return nil, fmt.Errorf("%w: no python interpreter found", ErrRuntimeMissing)
		}
		python = resolved
	}

	engine := &FasterWhisperEngine{
		python:      python,
		model:       cfg.Model,
		device:      cfg.Device,
		computeType: cfg.ComputeType,
		logger:      logger,
	}
	if engine.model == "" {
		engine.model = DefaultModel
	}
	if engine.device == "" {
		engine.device = DefaultDevice
	}
	if engine.computeType == "" {
		engine.computeType = DefaultComputeType
	}

	return engine, nil
}

// ResolvePython returns the interpreter the engine and its library-path
// discovery use: the UKSCRIBE_PYTHON override if set, otherwise python3
// or python from PATH.
func ResolvePython() (string, error) {
	if override := strings.TrimSpace(os.Getenv("UKSCRIBE_PYTHON")); override != "" {
		return override, nil
	}
	if path, err := exec.LookPath("python3"); err == nil {
		return path, nil
	}
	return exec.LookPath("python")
}

func (e *FasterWhisperEngine) Transcribe(ctx context.Context, req Request) (*Stream, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return nil, errors.New("audio path is required")
	}

	language := req.Language
	if language == "" {
		language = DefaultLanguage
	}
	beamSize := req.BeamSize
	if beamSize <= 0 {
		beamSize = DefaultBeamSize
	}

	scriptPath := filepath.Join(os.TempDir(), fmt.Sprintf("ukscribe-helper-%d.py", time.Now().UnixNano()))
	if err := os.WriteFile(scriptPath, helperScript, 0o700); err != nil {
		return nil, fmt.Errorf("write engine helper: %w", err)
	}

	args := []string{
		scriptPath,
		"--model", e.model,
		"--device", e.device,
		"--compute-type", e.computeType,
		"--language", language,
		"--beam-size", strconv.Itoa(beamSize),
		req.AudioPath,
	}

	cmd := exec.CommandContext(ctx, e.python, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.Remove(scriptPath)
		return nil, fmt.Errorf("open engine output pipe: %w", err)
	}

	e.logger.Debug("running faster-whisper helper",
		zap.String("python", e.python),
		zap.String("model", e.model),
		zap.String("device", e.device),
		zap.String("compute_type", e.computeType),
		zap.String("language", language),
		zap.Int("beam_size", beamSize),
		zap.String("audio", req.AudioPath),
	)

	if err := cmd.Start(); err != nil {
		os.Remove(scriptPath)
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRuntimeMissing, e.python)
		}
		return nil, fmt.Errorf("start engine helper: %w", err)
	}

	finish := func() error {
		_, _ = io.Copy(io.Discard, stdout)
		waitErr := cmd.Wait()
		os.Remove(scriptPath)
		return classifyRunError(waitErr, stderr.String())
	}

	return newStream(stdout, finish), nil
}

// classifyRunError turns a helper exit into the two failure categories the
// caller distinguishes: a missing faster-whisper installation, or an
// engine execution failure on the CUDA path carrying the helper's own
// message.
func classifyRunError(waitErr error, stderr string) error {
	if waitErr == nil {
		return nil
	}

	detail := strings.TrimSpace(stderr)
	if isMissingModuleError(detail) {
		return fmt.Errorf("%w (%s)", ErrRuntimeMissing, lastLine(detail))
	}

	if detail == "" {
		return fmt.Errorf("cuda error: %w", waitErr)
	}
	return fmt.Errorf("cuda error: %s", lastLine(detail))
}

func isMissingModuleError(stderr string) bool {
	value := strings.ToLower(stderr)
	return strings.Contains(value, "no module named 'faster_whisper'") ||
		strings.Contains(value, "no module named \"faster_whisper\"")
}

// lastLine extracts the final non-empty line, which for a Python traceback
// is the exception message itself.
func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return text
}
