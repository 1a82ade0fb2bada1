package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Info describes the video stream and container of a media file.
type Info struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FPS             float64 `json:"fps"`
	BitRate         int64   `json:"bit_rate"`
	Codec           string  `json:"codec"`
	FrameCount      int64   `json:"frame_count,omitempty"`
}

// Prober shells out to ffprobe for stream and format metadata.
type Prober struct {
	binary string
}

// NewProber constructs a Prober; an empty binary falls back to "ffprobe".
func NewProber(binary string) *Prober {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary}
}

type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

// Probe inspects a media file. inputFormat forces the container/stream format
// for files ffprobe cannot sniff (raw h264/hevc bitstreams); leave it empty
// otherwise.
func (p *Prober) Probe(ctx context.Context, path, inputFormat string) (*Info, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("probe path required")
	}
	args := []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams"}
	if inputFormat != "" {
		args = append(args, "-f", inputFormat)
	}
	args = append(args, path)

	cmd := commandContext(ctx, p.binary, args...) //nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	info := &Info{}
	for _, stream := range parsed.Streams {
		if stream.CodecType != "video" {
			continue
		}
		info.Width = stream.Width
		info.Height = stream.Height
		info.Codec = stream.CodecName
		info.FPS = parseRational(stream.RFrameRate)
		if frames, convErr := strconv.ParseInt(stream.NbFrames, 10, 64); convErr == nil {
			info.FrameCount = frames
		}
		break
	}
	if info.Codec == "" {
		return nil, fmt.Errorf("no video stream in %s", path)
	}
	if parsed.Format.Duration != "" {
		info.DurationSeconds, _ = strconv.ParseFloat(parsed.Format.Duration, 64)
	}
	if parsed.Format.BitRate != "" {
		info.BitRate, _ = strconv.ParseInt(parsed.Format.BitRate, 10, 64)
	}
	return info, nil
}

func parseRational(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	parsed, _ := strconv.ParseFloat(value, 64)
	return parsed
}
