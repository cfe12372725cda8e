package analysis

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/beatvault/beatvault-backend/pkg/config"
	pkgerrors "github.com/beatvault/beatvault-backend/pkg/errors"
	"github.com/beatvault/beatvault-backend/pkg/logger"
)

const (
	pcmSampleRate = 22050

	fallbackBPM        = 120
	fallbackConfidence = 0.7
	detectedConfidence = 0.8

	minTempo = 60
	maxTempo = 200
)

// Result carries everything finalize persists about one track.
type Result struct {
	Preview         []byte
	PreviewSeconds  int
	DurationSeconds int
	BPM             int
	Confidence      float64
}

// Engine derives preview audio and metadata from an original upload.
type Engine struct {
	httpClient        *http.Client
	ffmpegPath        string
	ffprobePath       string
	scratchDir        string
	previewMaxSeconds int
	previewBitrate    string
	bpmWindowSeconds  int
	logg              *logger.Logger
}

// NewEngine builds an analysis engine from the configured tool paths and caps.
func NewEngine(cfg config.AnalysisConfig, logg *logger.Logger) (*Engine, error) {
	ffmpegPath := strings.TrimSpace(cfg.FFmpegPath)
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpeg path is required")
	}
	if cfg.PreviewMaxSeconds <= 0 {
		return nil, fmt.Errorf("preview cap must be positive")
	}
	if cfg.BPMWindowSeconds <= 0 {
		return nil, fmt.Errorf("bpm window must be positive")
	}
	scratchDir := strings.TrimSpace(cfg.ScratchDir)
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	bitrate := strings.TrimSpace(cfg.PreviewBitrate)
	if bitrate == "" {
		bitrate = "128k"
	}
	return &Engine{
		httpClient:        &http.Client{Timeout: 2 * time.Minute},
		ffmpegPath:        ffmpegPath,
		ffprobePath:       strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1),
		scratchDir:        scratchDir,
		previewMaxSeconds: cfg.PreviewMaxSeconds,
		previewBitrate:    bitrate,
		bpmWindowSeconds:  cfg.BPMWindowSeconds,
		logg:              logg,
	}, nil
}

// Analyze fetches the original from sourceURL, transcodes the preview and
// estimates tempo and duration. The two scratch files are removed on every
// path; removal failures are logged, never returned.
func (e *Engine) Analyze(ctx context.Context, sourceURL string) (_ *Result, err error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source url is required")
	}

	token := uuid.NewString()
	originalPath := filepath.Join(e.scratchDir, "bv-original-"+token)
	previewPath := filepath.Join(e.scratchDir, "bv-preview-"+token+".mp3")

	defer func() {
		var cleanup error
		for _, p := range []string{originalPath, previewPath} {
			if rmErr := os.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) {
				cleanup = multierr.Append(cleanup, rmErr)
			}
		}
		if cleanup != nil && e.logg != nil {
			e.logg.Warn(ctx, fmt.Sprintf("analysis scratch cleanup failed: %v", cleanup))
		}
	}()

	if err := e.fetchSource(ctx, sourceURL, originalPath); err != nil {
		return nil, err
	}

	if err := e.transcodePreview(ctx, originalPath, previewPath); err != nil {
		return nil, err
	}
	preview, err := os.ReadFile(previewPath)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read preview")
	}

	bpm, confidence := e.estimateTempo(ctx, originalPath)

	duration := e.probeDuration(ctx, originalPath)
	previewSeconds := e.previewMaxSeconds
	if duration < previewSeconds {
		previewSeconds = duration
	}

	return &Result{
		Preview:         preview,
		PreviewSeconds:  previewSeconds,
		DurationSeconds: duration,
		BPM:             bpm,
		Confidence:      confidence,
	}, nil
}

func (e *Engine) fetchSource(ctx context.Context, sourceURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build source request")
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch source audio")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("source fetch returned %s", resp.Status))
	}

	out, err := os.Create(dest)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create scratch file")
	}
	_, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, copyErr, "stream source audio")
	}
	if closeErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, closeErr, "flush scratch file")
	}
	return nil
}

func (e *Engine) transcodePreview(ctx context.Context, inputPath, outputPath string) error {
	args := previewArgs(inputPath, outputPath, e.previewMaxSeconds, e.previewBitrate)
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			fmt.Sprintf("ffmpeg transcode failed: %s", strings.TrimSpace(stderr.String())))
	}
	return nil
}

func previewArgs(inputPath, outputPath string, capSeconds int, bitrate string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-t", strconv.Itoa(capSeconds),
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", bitrate,
		"-f", "mp3",
		outputPath,
	}
}

// estimateTempo decodes a bounded mono PCM prefix and runs the onset
// autocorrelation estimator. Any failure collapses to the fallback tempo.
func (e *Engine) estimateTempo(ctx context.Context, inputPath string) (int, float64) {
	samples, err := e.decodePCMPrefix(ctx, inputPath)
	if err != nil || len(samples) == 0 {
		if e.logg != nil && err != nil {
			e.logg.Warn(ctx, fmt.Sprintf("bpm decode failed, using fallback: %v", err))
		}
		return fallbackBPM, fallbackConfidence
	}

	bpm, ok := estimateBPM(samples, pcmSampleRate)
	if !ok {
		return fallbackBPM, fallbackConfidence
	}
	return bpm, detectedConfidence
}

func (e *Engine) decodePCMPrefix(ctx context.Context, inputPath string) ([]int16, error) {
	args := pcmArgs(inputPath, e.bpmWindowSeconds)
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg pcm decode: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	raw := stdout.Bytes()
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}

func pcmArgs(inputPath string, windowSeconds int) []string {
	return []string{
		"-t", strconv.Itoa(windowSeconds),
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(pcmSampleRate),
		"-f", "s16le",
		"pipe:1",
	}
}

// probeDuration asks ffprobe for the original's duration in seconds. A failed
// probe falls back to the preview cap.
func (e *Engine) probeDuration(ctx context.Context, inputPath string) int {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputPath,
	}
	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if e.logg != nil {
			e.logg.Warn(ctx, fmt.Sprintf("ffprobe failed, using preview cap as duration: %v", err))
		}
		return e.previewMaxSeconds
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil || probe.Format.Duration == "" {
		return e.previewMaxSeconds
	}
	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil || seconds <= 0 {
		return e.previewMaxSeconds
	}
	return int(seconds + 0.5)
}
