package metrics

import (
	"bufio"
	"strconv"
	"strings"

	"vqa/internal/services"
)

// ParsePSNR reads an ffmpeg psnr stats file. Each frame is one line of the
// form:
//
//	n:1 mse_avg:0.52 mse_y:0.48 ... psnr_avg:50.99 psnr_y:51.31 psnr_u:50.48 psnr_v:50.97
func ParsePSNR(raw string) ([]Sample, error) {
	var samples []Sample
	sawStatsLine := false

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := splitStatsLine(line)
		if _, ok := fields["n"]; !ok {
			continue
		}
		sawStatsLine = true
		frame, ok := intField(fields, "n")
		if !ok {
			continue
		}
		sample := Sample{Frame: frame}
		if v, ok := floatField(fields, "psnr_avg"); ok {
			sample.PSNRAvg = ptr(v)
		}
		if v, ok := floatField(fields, "psnr_y"); ok {
			sample.PSNRY = ptr(v)
		}
		if v, ok := floatField(fields, "psnr_u"); ok {
			sample.PSNRU = ptr(v)
		}
		if v, ok := floatField(fields, "psnr_v"); ok {
			sample.PSNRV = ptr(v)
		}
		if sample.PSNRAvg == nil {
			continue
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrParse, "metrics", "psnr", "read stats", err)
	}
	if len(samples) == 0 {
		if sawStatsLine {
			return nil, services.Wrap(services.ErrParse, "metrics", "psnr", "stats contain no psnr values", nil)
		}
		return nil, services.Wrap(services.ErrParse, "metrics", "psnr", "not a psnr stats report", nil)
	}
	return samples, nil
}

// ParseSSIM reads an ffmpeg ssim stats file. Each frame is one line of the
// form:
//
//	n:1 Y:0.9876 U:0.9901 V:0.9888 All:0.9885 (15.234)
func ParseSSIM(raw string) ([]Sample, error) {
	var samples []Sample
	sawStatsLine := false

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := splitStatsLine(line)
		if _, ok := fields["n"]; !ok {
			continue
		}
		sawStatsLine = true
		frame, ok := intField(fields, "n")
		if !ok {
			continue
		}
		sample := Sample{Frame: frame}
		if v, ok := floatField(fields, "All"); ok {
			sample.SSIMAll = ptr(v)
		}
		if v, ok := floatField(fields, "Y"); ok {
			sample.SSIMY = ptr(v)
		}
		if v, ok := floatField(fields, "U"); ok {
			sample.SSIMU = ptr(v)
		}
		if v, ok := floatField(fields, "V"); ok {
			sample.SSIMV = ptr(v)
		}
		if sample.SSIMAll == nil {
			continue
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrParse, "metrics", "ssim", "read stats", err)
	}
	if len(samples) == 0 {
		if sawStatsLine {
			return nil, services.Wrap(services.ErrParse, "metrics", "ssim", "stats contain no ssim values", nil)
		}
		return nil, services.Wrap(services.ErrParse, "metrics", "ssim", "not an ssim stats report", nil)
	}
	return samples, nil
}

// splitStatsLine breaks "k:v k:v ..." tokens into a map. Tokens without a
// colon (the trailing "(15.234)" in ssim lines) are skipped.
func splitStatsLine(line string) map[string]string {
	fields := make(map[string]string)
	for _, token := range strings.Fields(line) {
		key, value, ok := strings.Cut(token, ":")
		if !ok || key == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}

func floatField(fields map[string]string, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func intField(fields map[string]string, key string) (int, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
