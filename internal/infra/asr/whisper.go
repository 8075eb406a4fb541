package asr

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/ports/adapter"
)

var _ adapter.TranscriptionEngine = (*WhisperEngine)(nil)

// WhisperEngine shells out to a faster-whisper CLI and parses its JSON
// output. One engine instance is built per (model, device, compute type)
// combination and reused across jobs.
type WhisperEngine struct {
	binPath  string
	modelDir string
	cfg      adapter.EngineConfig
}

// NewWhisperEngine validates the runtime it depends on before returning an
// engine, so a missing binary or model surfaces at load time instead of in
// the middle of a job.
func NewWhisperEngine(binPath, modelDir string, cfg adapter.EngineConfig) (*WhisperEngine, error) {
	if _, err := exec.LookPath(binPath); err != nil {
		return nil, fmt.Errorf("transcription binary %q not found: %w", binPath, domain.ErrResourceUnavailable)
	}
	if modelDir != "" {
		if _, err := os.Stat(modelDir); err != nil {
			return nil, fmt.Errorf("model directory %q: %w", modelDir, domain.ErrEngineLoad)
		}
	}
	return &WhisperEngine{binPath: binPath, modelDir: modelDir, cfg: cfg}, nil
}

func (e *WhisperEngine) Config() adapter.EngineConfig { return e.cfg }

type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (e *WhisperEngine) Transcribe(ctx context.Context, audioPath string, opts adapter.TranscribeOptions, onProgress adapter.ProgressFunc) (*adapter.Transcript, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file %q: %w", audioPath, domain.ErrNotFound)
	}

	outDir, err := os.MkdirTemp("", "transcribe-*")
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	args := []string{
		audioPath,
		"--model", e.cfg.ModelSize,
		"--device", e.cfg.Device,
		"--compute_type", e.cfg.ComputeType,
		"--output_format", "json",
		"--output_dir", outDir,
	}
	if e.modelDir != "" {
		args = append(args, "--model_directory", e.modelDir)
	}
	// "auto" means no explicit pick; the caller resolves it to a concrete
	// default before it gets here, but never let it reach the CLI, where
	// it would re-enable language auto-detection.
	if opts.Language != "" && !strings.EqualFold(opts.Language, "auto") {
		args = append(args, "--language", opts.Language)
	}

	cmd := exec.CommandContext(ctx, e.binPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("attach stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start transcription: %v: %w", err, domain.ErrProcessing)
	}

	// The CLI prints one timestamped line per segment as it is produced;
	// relaying those lines is what gives subscribers progress during the
	// heavy stage instead of a burst at the end.
	totalSeconds := wavDuration(audioPath)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if end, ok := parseSegmentEnd(scanner.Text()); ok && onProgress != nil {
			onProgress(end, totalSeconds)
		}
	}
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("transcribe %q: %v: %s: %w", audioPath, err, lastLine(stderr.String()), domain.ErrProcessing)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	raw, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("read transcript output: %w", domain.ErrProcessing)
	}

	var out whisperOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode transcript output: %w", domain.ErrProcessing)
	}

	tr := &adapter.Transcript{
		Text:     strings.TrimSpace(out.Text),
		Language: out.Language,
		Segments: make([]adapter.Segment, 0, len(out.Segments)),
	}
	for _, s := range out.Segments {
		tr.Segments = append(tr.Segments, adapter.Segment{
			ID:    s.ID,
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
		tr.Duration = s.End
	}
	if onProgress != nil && totalSeconds > 0 {
		onProgress(totalSeconds, totalSeconds)
	}
	return tr, nil
}

// segmentStampRe matches the closing timestamp of the CLI's per-segment
// progress lines, e.g. "[00:12.480 --> 00:15.200]  text" (an hour field
// appears on long recordings).
var segmentStampRe = regexp.MustCompile(`-->\s*(?:(\d+):)?(\d+):(\d{2})\.(\d{1,3})\]`)

func parseSegmentEnd(line string) (float64, bool) {
	m := segmentStampRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours := 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	millis, _ := strconv.Atoi(m[4] + strings.Repeat("0", 3-len(m[4])))
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, true
}

// wavDuration derives the audio length from the wav header the ffmpeg
// preparer wrote (data size over byte rate). Returns 0 when the file does
// not carry a readable header.
func wavDuration(path string) float64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	hdr := make([]byte, 44)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return 0
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return 0
	}
	byteRate := binary.LittleEndian.Uint32(hdr[28:32])
	if byteRate == 0 {
		return 0
	}
	info, err := f.Stat()
	if err != nil || info.Size() <= 44 {
		return 0
	}
	return float64(info.Size()-44) / float64(byteRate)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
