package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"vqa/internal/services"
)

// Encoder identifies which external encoder a template drives.
type Encoder string

const (
	EncoderFFmpeg Encoder = "ffmpeg"
	EncoderX264   Encoder = "x264"
	EncoderX265   Encoder = "x265"
	EncoderVVenC  Encoder = "vvenc"
)

// ValidEncoder reports whether e names a supported encoder.
func ValidEncoder(e Encoder) bool {
	switch e {
	case EncoderFFmpeg, EncoderX264, EncoderX265, EncoderVVenC:
		return true
	}
	return false
}

// DefaultBinary returns the conventional executable name for an encoder.
func DefaultBinary(e Encoder) string { return string(e) }

// YUVParams describes a raw yuv420p input stream. Raw files carry no header,
// so geometry and rate must come from the template or the filename.
type YUVParams struct {
	Width  int
	Height int
	FPS    float64
}

func (p YUVParams) size() string { return fmt.Sprintf("%dx%d", p.Width, p.Height) }

func (p YUVParams) fps() string { return strconv.FormatFloat(p.FPS, 'f', -1, 64) }

// yuvNamePattern matches the name_WxH_fps.yuv convention.
var yuvNamePattern = regexp.MustCompile(`(?i)_([0-9]+)x([0-9]+)_([0-9]+(?:\.[0-9]+)?)\.yuv$`)

// ParseYUVName recovers raw-input parameters from a name_WxH_fps.yuv
// filename.
func ParseYUVName(path string) (*YUVParams, error) {
	name := filepath.Base(path)
	m := yuvNamePattern.FindStringSubmatch(name)
	if m == nil {
		return nil, services.Wrap(services.ErrConfiguration, "analysis", "yuv params",
			fmt.Sprintf("filename %s does not follow name_WxH_fps.yuv and no explicit geometry is set", name), nil)
	}
	width, _ := strconv.Atoi(m[1])
	height, _ := strconv.Atoi(m[2])
	fps, _ := strconv.ParseFloat(m[3], 64)
	return &YUVParams{Width: width, Height: height, FPS: fps}, nil
}

// rawInputArgs is the ffmpeg flag set needed to read a headerless yuv420p
// stream.
func rawInputArgs(yuv *YUVParams) []string {
	return []string{
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"-s", yuv.size(),
		"-r", yuv.fps(),
	}
}

// OutputExtension picks the bitstream extension an encode pass produces.
// x264/x265/vvenc emit elementary streams; ffmpeg keeps the container unless
// the params force a specific codec.
func OutputExtension(encoder Encoder, encoderParams, sourcePath string) string {
	switch encoder {
	case EncoderX264:
		return "h264"
	case EncoderX265:
		return "h265"
	case EncoderVVenC:
		return "h266"
	case EncoderFFmpeg:
		params := strings.ToLower(encoderParams)
		switch {
		case strings.Contains(params, "libx265"), strings.Contains(params, "hevc"):
			return "h265"
		case strings.Contains(params, "libx264"), strings.Contains(params, "h264"):
			return "h264"
		}
		ext := strings.TrimPrefix(filepath.Ext(sourcePath), ".")
		switch ext {
		case "", "h264", "h265", "264", "265", "yuv":
			return "h264"
		}
		return ext
	}
	ext := strings.TrimPrefix(filepath.Ext(sourcePath), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}

// EncodeOutputPath derives the encoded file location for a source.
func EncodeOutputPath(outputDir string, encoder Encoder, encoderParams, sourcePath string) string {
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	ext := OutputExtension(encoder, encoderParams, sourcePath)
	return filepath.Join(outputDir, stem+"_encode."+ext)
}

// BuildEncodeCommand assembles the encoder argv for one source file. The
// binary is returned separately from its arguments.
func BuildEncodeCommand(encoder Encoder, binary, encoderParams, sourcePath, outputPath string, yuv *YUVParams) (string, []string, error) {
	if binary == "" {
		binary = DefaultBinary(encoder)
	}

	switch encoder {
	case EncoderFFmpeg:
		var args []string
		if yuv != nil {
			args = append(args, rawInputArgs(yuv)...)
		}
		args = append(args, "-i", sourcePath)
		args = append(args, strings.Fields(encoderParams)...)
		if !hasCodecFlag(args) {
			args = append(args, "-c:v", "libx264")
		}
		args = append(args, "-y", outputPath)
		return binary, args, nil

	case EncoderX264, EncoderX265:
		var args []string
		if yuv != nil {
			args = append(args, "--input-res", yuv.size(), "--fps", yuv.fps())
		}
		args = append(args, strings.Fields(encoderParams)...)
		args = append(args, "-o", outputPath, sourcePath)
		return binary, args, nil

	case EncoderVVenC:
		args := []string{"-i", sourcePath}
		if yuv != nil {
			args = append(args, "--size", yuv.size(), "--framerate", yuv.fps())
		}
		args = append(args, "-o", outputPath)
		args = append(args, strings.Fields(encoderParams)...)
		return binary, args, nil
	}

	return "", nil, services.Wrap(services.ErrConfiguration, "analysis", "encode",
		fmt.Sprintf("unsupported encoder %q", encoder), nil)
}

func hasCodecFlag(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-c:v", "-codec:v", "-vcodec":
			return true
		}
	}
	return false
}

// FindEncodedOutput locates an already-encoded bitstream for a reference file
// when the encode pass is skipped. Exact name first, then the _encode suffix
// convention, then glob fallbacks.
func FindEncodedOutput(outputDir, referencePath string) (string, error) {
	base := filepath.Base(referencePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	exact := filepath.Join(outputDir, base)
	if isFile(exact) {
		return exact, nil
	}
	suffixed := filepath.Join(outputDir, stem+"_encode"+ext)
	if isFile(suffixed) {
		return suffixed, nil
	}

	for _, pattern := range []string{stem + "_encode.*", stem + ".*"} {
		matches, err := filepath.Glob(filepath.Join(outputDir, pattern))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, match := range matches {
			if isFile(match) {
				return match, nil
			}
		}
	}

	return "", services.Wrap(services.ErrMissingInput, "analysis", "skip encode",
		fmt.Sprintf("no encoded output for %s in %s", base, outputDir), nil)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
