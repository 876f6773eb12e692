package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFasterWhisperEngineFillsDefaults(t *testing.T) {
	t.Parallel()

	engine, err := NewFasterWhisperEngine(Config{Python: "/usr/bin/python3"}, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultModel, engine.model)
	require.Equal(t, DefaultDevice, engine.device)
	require.Equal(t, DefaultComputeType, engine.computeType)
}

func TestNewFasterWhisperEngineKeepsExplicitConfig(t *testing.T) {
	t.Parallel()

	engine, err := NewFasterWhisperEngine(Config{
		Model:       "small",
		Device:      "cpu",
		ComputeType: "int8",
		Python:      "/usr/bin/python3",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "small", engine.model)
	require.Equal(t, "cpu", engine.device)
	require.Equal(t, "int8", engine.computeType)
}

func TestResolvePythonHonorsOverride(t *testing.T) {
	t.Setenv("UKSCRIBE_PYTHON", "/opt/venv/bin/python")

	python, err := ResolvePython()
	require.NoError(t, err)
	require.Equal(t, "/opt/venv/bin/python", python)
}

func TestTranscribeRequiresAudioPath(t *testing.T) {
	t.Parallel()

	engine, err := NewFasterWhisperEngine(Config{Python: "/usr/bin/python3"}, nil)
	require.NoError(t, err)

	_, err = engine.Transcribe(context.Background(), Request{AudioPath: "  "})
	require.Error(t, err)
	require.Contains(t, err.Error(), "audio path is required")
}

func TestClassifyRunError(t *testing.T) {
	t.Parallel()

	require.NoError(t, classifyRunError(nil, "whatever"))

	err := classifyRunError(errors.New("exit status 3"), "No module named 'faster_whisper'\n")
	require.ErrorIs(t, err, ErrRuntimeMissing)

	traceback := "Traceback (most recent call last):\n  File \"helper.py\", line 30\nRuntimeError: CUDA driver version is insufficient\n"
	err = classifyRunError(errors.New("exit status 1"), traceback)
	require.NotErrorIs(t, err, ErrRuntimeMissing)
	require.Contains(t, err.Error(), "cuda error")
	require.Contains(t, err.Error(), "CUDA driver version is insufficient")

	err = classifyRunError(errors.New("exit status 1"), "")
	require.Contains(t, err.Error(), "exit status 1")
}

func TestLastLine(t *testing.T) {
	t.Parallel()

	require.Equal(t, "RuntimeError: boom", lastLine("Traceback...\n  frame\nRuntimeError: boom\n\n"))
	require.Equal(t, "single", lastLine("single"))
}

// stubInterpreter builds an executable that ignores the helper script and
// replays canned stdout/stderr, standing in for the Python runtime.
func stubInterpreter(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub interpreter uses a shell script")
	}

	path := filepath.Join(t.TempDir(), "python-stub")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestTranscribeStreamsFromHelper(t *testing.T) {
	t.Parallel()

	stub := stubInterpreter(t, `cat <<'EOF'
{"type":"info","language":"uk","language_probability":0.97,"duration":2.0}
{"type":"segment","start":0,"end":2,"text":" привіт"}
EOF
`)

	engine, err := NewFasterWhisperEngine(Config{Python: stub}, nil)
	require.NoError(t, err)

	stream, err := engine.Transcribe(context.Background(), Request{AudioPath: "/tmp/clip.wav"})
	require.NoError(t, err)

	text, err := stream.Text()
	require.NoError(t, err)
	require.Equal(t, "привіт", text)
	require.Equal(t, "uk", stream.Info().Language)
}

func TestTranscribeReportsHelperFailure(t *testing.T) {
	t.Parallel()

	stub := stubInterpreter(t, `echo "RuntimeError: CUDA failed to initialize" >&2
exit 1
`)

	engine, err := NewFasterWhisperEngine(Config{Python: stub}, nil)
	require.NoError(t, err)

	stream, err := engine.Transcribe(context.Background(), Request{AudioPath: "/tmp/clip.wav"})
	require.NoError(t, err)

	_, err = stream.Text()
	require.Error(t, err)
	require.Contains(t, err.Error(), "cuda error")
	require.Contains(t, err.Error(), "CUDA failed to initialize")
}

func TestTranscribeReportsMissingRuntime(t *testing.T) {
	t.Parallel()

	stub := stubInterpreter(t, `echo "No module named 'faster_whisper'" >&2
exit 3
`)

	engine, err := NewFasterWhisperEngine(Config{Python: stub}, nil)
	require.NoError(t, err)

	stream, err := engine.Transcribe(context.Background(), Request{AudioPath: "/tmp/clip.wav"})
	require.NoError(t, err)

	_, err = stream.Text()
	require.ErrorIs(t, err, ErrRuntimeMissing)
}
