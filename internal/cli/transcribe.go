package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/otaranenko/ukscribe/internal/audio"
	"github.com/otaranenko/ukscribe/internal/clipboard"
	"github.com/otaranenko/ukscribe/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *appState) runTranscription(cmd *cobra.Command, audioPath string) error {
	transcribeFn := a.transcribeFn
	if transcribeFn == nil {
		transcribeFn = a.transcribeAudio
	}

	copyFn := a.copyFn
	if copyFn == nil {
		copyFn = clipboard.CopyText
	}

	transcript, skipped, err := a.silenceGateTranscript(audioPath)
	if err != nil {
		return err
	}
	if !skipped {
		transcript, err = transcribeFn(cmd.Context(), audioPath)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), transcript)
	if isBlankTranscript(transcript) {
		a.log().Warn(noSpeechHint())
	}

	if !a.copyToClip {
		return nil
	}
	if isBlankTranscript(transcript) && !a.copyEmpty {
		return nil
	}

	if err := copyFn(cmd.Context(), transcript); err != nil {
		if errors.Is(err, clipboard.ErrUnavailable) {
			a.log().Warn("clipboard tool unavailable; transcript left on stdout")
			return nil
		}
		a.log().Warn("failed to copy transcript to clipboard; transcript left on stdout", zap.Error(err))
		return nil
	}

	a.log().Info("transcript copied to clipboard")
	return nil
}

func (a *appState) transcribeAudio(ctx context.Context, audioPath string) (string, error) {
	audioPath = filepath.Clean(audioPath)

	engine, err := whisper.NewFasterWhisperEngine(whisper.Config{
		Model:       a.model,
		Device:      a.device,
		ComputeType: a.computeType,
	}, a.log())
	if err != nil {
		return "", err
	}

	a.log().Info("transcribing...",
		zap.String("audio", audioPath),
		zap.String("model", a.model),
		zap.String("device", a.device),
		zap.String("language", a.language),
	)
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()

	stream, err := engine.Transcribe(ctx, whisper.Request{
		AudioPath: audioPath,
		Language:  a.language,
		BeamSize:  a.beamSize,
	})
	if err != nil {
		stopSpinner()
		return "", err
	}

	transcript, err := stream.Text()
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		// No automatic retry here. Rerunning with model "small",
		// device "cpu", compute type "int8" would recover from a dead
		// CUDA setup, but it turns a loud device failure into silently
		// degraded output, so the fallback stays off.
		return "", err
	}

	a.log().Info("transcription finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.String("detected_language", stream.Info().Language),
	)

	return transcript, nil
}

func (a *appState) silenceGateTranscript(audioPath string) (string, bool, error) {
	if !a.silenceGate {
		return "", false, nil
	}

	if !strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		return "", false, nil
	}

	silent, metrics, err := audio.IsSilentWAV(audioPath, a.silenceDBFS)
	if err != nil {
		a.log().Warn("silence gate analysis failed; continuing transcription", zap.Error(err), zap.String("audio", audioPath))
		return "", false, nil
	}

	if !silent {
		return "", false, nil
	}

	a.log().Info(
		"audio considered silent; skipping transcription",
		zap.String("audio", audioPath),
		zap.Float64("rms_dbfs", metrics.RMSdBFS),
		zap.Float64("peak_dbfs", metrics.PeakdBFS),
		zap.Float64("threshold_dbfs", a.silenceDBFS),
	)

	return blankAudioToken, true, nil
}
