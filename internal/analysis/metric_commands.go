package analysis

import (
	"path/filepath"
	"strings"
)

// Metric names accepted in template metric sets.
const (
	MetricPSNR = "psnr"
	MetricSSIM = "ssim"
	MetricVMAF = "vmaf"
)

// ValidMetric reports whether name is a supported metric.
func ValidMetric(name string) bool {
	switch name {
	case MetricPSNR, MetricSSIM, MetricVMAF:
		return true
	}
	return false
}

// NormalizeMetrics lowercases, dedupes, and orders a metric set as
// psnr, ssim, vmaf. Unknown names are returned separately.
func NormalizeMetrics(names []string) (valid, unknown []string) {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if !ValidMetric(name) {
			unknown = append(unknown, name)
		}
	}
	for _, name := range []string{MetricPSNR, MetricSSIM, MetricVMAF} {
		if seen[name] {
			valid = append(valid, name)
		}
	}
	return valid, unknown
}

// metricLogPath places a metric report next to the other job artifacts.
func metricLogPath(metricsDir, distortedPath, metric string) string {
	stem := strings.TrimSuffix(filepath.Base(distortedPath), filepath.Ext(distortedPath))
	ext := ".log"
	if metric == MetricVMAF {
		ext = ".json"
	}
	return filepath.Join(metricsDir, stem+"_"+metric+ext)
}

// BuildMetricCommand assembles the ffmpeg argv for one metric pass. The
// distorted stream is the first input, the reference the second; raw-input
// flags apply to the reference when the source is headerless yuv.
func BuildMetricCommand(metric, distortedPath, referencePath, logPath, vmafModel string, refYUV *YUVParams) []string {
	args := []string{"-i", distortedPath}
	if refYUV != nil {
		args = append(args, rawInputArgs(refYUV)...)
	}
	args = append(args, "-i", referencePath)

	var filter string
	switch metric {
	case MetricPSNR:
		filter = "psnr=stats_file=" + logPath
	case MetricSSIM:
		filter = "ssim=stats_file=" + logPath
	case MetricVMAF:
		filter = "libvmaf=log_path=" + logPath + ":log_fmt=json"
		if vmafModel != "" {
			filter += ":model=path=" + vmafModel
		}
	}

	args = append(args, "-lavfi", filter, "-f", "null", "-")
	return args
}
