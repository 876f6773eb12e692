package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/otaranenko/ukscribe/internal/clipboard"
	"github.com/otaranenko/ukscribe/internal/logging"
	"github.com/otaranenko/ukscribe/internal/nvidia"
	"github.com/otaranenko/ukscribe/internal/version"
	"github.com/otaranenko/ukscribe/internal/whisper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

type appState struct {
	verbose     bool
	jsonLogs    bool
	noProgress  bool
	model       string
	device      string
	computeType string
	language    string
	beamSize    int
	copyToClip  bool
	copyEmpty   bool
	silenceGate bool
	silenceDBFS float64

	logger *zap.Logger

	transcribeFn func(ctx context.Context, audioPath string) (string, error)
	copyFn       func(ctx context.Context, value string) error
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(newAppState())
}

func newAppState() *appState {
	app := &appState{
		model:       whisper.DefaultModel,
		device:      whisper.DefaultDevice,
		computeType: whisper.DefaultComputeType,
		language:    whisper.DefaultLanguage,
		beamSize:    whisper.DefaultBeamSize,
		silenceDBFS: -65,
	}
	app.transcribeFn = app.transcribeAudio
	app.copyFn = clipboard.CopyText
	return app
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ukscribe <audio-file>",
		Short:         "Transcribe an audio file to Ukrainian text with faster-whisper on CUDA",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.language = sanitizeLanguage(app.language)
			app.logger = logger
			nvidia.Apply(logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runTranscription(cmd, args[0])
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindEngineFlags(cmd, app)
	bindCopyAndSilenceFlags(cmd, app)

	cmd.AddCommand(newCudaPathsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindEngineFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.model, "model", app.model, "Whisper model identifier")
	cmd.Flags().StringVar(&app.device, "device", app.device, "Inference device (cuda|cpu)")
	cmd.Flags().StringVar(&app.computeType, "compute-type", app.computeType, "Numeric precision for the device (float16|int8|...)")
	cmd.Flags().StringVar(&app.language, "language", app.language, "Source language code of the audio")
	cmd.Flags().IntVar(&app.beamSize, "beam-size", app.beamSize, "Beam search width for decoding")
}

func bindCopyAndSilenceFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.copyToClip, "copy", app.copyToClip, "Copy transcript to clipboard")
	cmd.Flags().BoolVar(&app.copyEmpty, "copy-empty", app.copyEmpty, "Copy blank transcripts to clipboard")
	cmd.Flags().BoolVar(&app.silenceGate, "silence-gate", app.silenceGate, "Detect near-silent WAV audio and skip transcription")
	cmd.Flags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
