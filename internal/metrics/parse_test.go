package metrics_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"vqa/internal/metrics"
	"vqa/internal/services"
)

const psnrFixture = `n:1 mse_avg:0.52 mse_y:0.48 mse_u:0.58 mse_v:0.52 psnr_avg:50.99 psnr_y:51.31 psnr_u:50.48 psnr_v:50.97
n:2 mse_avg:0.55 mse_y:0.50 mse_u:0.60 mse_v:0.55 psnr_avg:50.72 psnr_y:51.10 psnr_u:50.21 psnr_v:50.70
`

const ssimFixture = `n:1 Y:0.9876 U:0.9901 V:0.9888 All:0.9885 (19.389)
n:2 Y:0.9870 U:0.9899 V:0.9881 All:0.9879 (19.182)
`

func TestParsePSNR(t *testing.T) {
	samples, err := metrics.ParsePSNR(psnrFixture)
	if err != nil {
		t.Fatalf("ParsePSNR failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("sample count = %d, want 2", len(samples))
	}
	if samples[0].Frame != 1 || samples[0].PSNRAvg == nil || *samples[0].PSNRAvg != 50.99 {
		t.Fatalf("unexpected first sample: %+v", samples[0])
	}
	if samples[1].PSNRV == nil || *samples[1].PSNRV != 50.70 {
		t.Fatalf("unexpected V plane: %+v", samples[1])
	}
}

func TestParsePSNRRejectsGarbage(t *testing.T) {
	_, err := metrics.ParsePSNR("this is not a stats file\n")
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestParsePSNRRejectsEmpty(t *testing.T) {
	_, err := metrics.ParsePSNR("")
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestParseSSIM(t *testing.T) {
	samples, err := metrics.ParseSSIM(ssimFixture)
	if err != nil {
		t.Fatalf("ParseSSIM failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("sample count = %d, want 2", len(samples))
	}
	if samples[0].SSIMAll == nil || *samples[0].SSIMAll != 0.9885 {
		t.Fatalf("unexpected ssim all: %+v", samples[0])
	}
	if samples[0].SSIMY == nil || *samples[0].SSIMY != 0.9876 {
		t.Fatalf("unexpected ssim y: %+v", samples[0])
	}
}

func TestParseVMAFJSON(t *testing.T) {
	raw := `{
		"frames": [
			{"frameNum": 0, "metrics": {"vmaf": 95.1, "vmaf_neg": 93.0}},
			{"frameNum": 1, "metrics": {"vmaf": 96.3}}
		],
		"pooled_metrics": {
			"vmaf": {"mean": 95.7, "harmonic_mean": 95.69},
			"vmaf_neg": {"mean": 93.0}
		}
	}`
	report, err := metrics.ParseVMAF(raw)
	if err != nil {
		t.Fatalf("ParseVMAF failed: %v", err)
	}
	if len(report.Samples) != 2 {
		t.Fatalf("sample count = %d, want 2", len(report.Samples))
	}
	if report.Samples[1].VMAFNeg != nil {
		t.Fatal("frame 1 should have no vmaf_neg")
	}
	if report.PooledMean == nil || *report.PooledMean != 95.7 {
		t.Fatalf("pooled mean = %v", report.PooledMean)
	}
	if report.HarmonicMean == nil || *report.HarmonicMean != 95.69 {
		t.Fatalf("harmonic mean = %v", report.HarmonicMean)
	}
}

func TestParseVMAFJSONZeroFramesIsDistinctFromMalformed(t *testing.T) {
	_, emptyErr := metrics.ParseVMAF(`{"frames": [], "pooled_metrics": {}}`)
	if !errors.Is(emptyErr, services.ErrParse) {
		t.Fatalf("expected ErrParse for empty report, got %v", emptyErr)
	}
	if !strings.Contains(emptyErr.Error(), "zero frames") {
		t.Fatalf("empty report error should mention zero frames: %v", emptyErr)
	}

	_, badErr := metrics.ParseVMAF(`{"frames": [`)
	if !errors.Is(badErr, services.ErrParse) {
		t.Fatalf("expected ErrParse for malformed report, got %v", badErr)
	}
	if strings.Contains(badErr.Error(), "zero frames") {
		t.Fatalf("malformed report should not be reported as empty: %v", badErr)
	}
}

func TestParseVMAFCSV(t *testing.T) {
	raw := "Frame,vmaf,vmaf_neg\n0,90.0,88.0\n1,92.0,90.0\n"
	report, err := metrics.ParseVMAF(raw)
	if err != nil {
		t.Fatalf("ParseVMAF failed: %v", err)
	}
	if len(report.Samples) != 2 {
		t.Fatalf("sample count = %d, want 2", len(report.Samples))
	}
	if report.PooledMean == nil || *report.PooledMean != 91.0 {
		t.Fatalf("pooled mean = %v, want 91.0", report.PooledMean)
	}
	if report.NegMean == nil || *report.NegMean != 89.0 {
		t.Fatalf("neg mean = %v, want 89.0", report.NegMean)
	}
}

func TestParseVMAFCSVHeaderOnly(t *testing.T) {
	_, err := metrics.ParseVMAF("Frame,vmaf\n")
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if !strings.Contains(err.Error(), "zero frames") {
		t.Fatalf("header-only report should be reported as empty: %v", err)
	}
}

func TestMergeAndSummarizePartialMetrics(t *testing.T) {
	// 100 frames of VMAF; SSIM absent on frames 50-60.
	var psnrLines, ssimLines strings.Builder
	vmafFrames := make([]string, 0, 100)
	for i := 1; i <= 100; i++ {
		fmt.Fprintf(&psnrLines, "n:%d psnr_avg:50.0 psnr_y:51.0 psnr_u:49.0 psnr_v:50.0\n", i)
		if i < 50 || i > 60 {
			fmt.Fprintf(&ssimLines, "n:%d Y:0.99 U:0.99 V:0.99 All:0.98 (17.0)\n", i)
		}
		vmafFrames = append(vmafFrames, fmt.Sprintf(`{"frameNum": %d, "metrics": {"vmaf": 95.0}}`, i))
	}

	psnr, err := metrics.ParsePSNR(psnrLines.String())
	if err != nil {
		t.Fatalf("ParsePSNR failed: %v", err)
	}
	ssim, err := metrics.ParseSSIM(ssimLines.String())
	if err != nil {
		t.Fatalf("ParseSSIM failed: %v", err)
	}
	vmaf, err := metrics.ParseVMAF(`{"frames": [` + strings.Join(vmafFrames, ",") + `]}`)
	if err != nil {
		t.Fatalf("ParseVMAF failed: %v", err)
	}

	merged := metrics.Merge(psnr, ssim, vmaf.Samples)
	if len(merged) != 100 {
		t.Fatalf("merged frame count = %d, want 100", len(merged))
	}

	summary := metrics.Summarize(merged)
	if summary.VMAF == nil || summary.VMAF.Count != 100 {
		t.Fatalf("vmaf aggregate = %+v, want count 100", summary.VMAF)
	}
	if summary.SSIM == nil || summary.SSIM.Avg == nil || summary.SSIM.Avg.Count != 89 {
		t.Fatalf("ssim aggregate = %+v, want count 89", summary.SSIM)
	}
	if summary.SSIM.Avg.Mean != 0.98 {
		t.Fatalf("ssim mean = %f, want 0.98 (no fabricated values)", summary.SSIM.Avg.Mean)
	}
}

func TestSummarizeMinMax(t *testing.T) {
	psnr, err := metrics.ParsePSNR("n:1 psnr_avg:48.0\nn:2 psnr_avg:52.0\nn:3 psnr_avg:50.0\n")
	if err != nil {
		t.Fatalf("ParsePSNR failed: %v", err)
	}
	summary := metrics.Summarize(psnr)
	agg := summary.PSNR.Avg
	if agg.Min != 48.0 || agg.Max != 52.0 || agg.Mean != 50.0 {
		t.Fatalf("aggregate = %+v", agg)
	}
}

func TestThroughputFloorsDuration(t *testing.T) {
	if fps := metrics.Throughput(100, 0); fps <= 0 {
		t.Fatalf("throughput with zero duration = %f, want positive via floor", fps)
	}
	if fps := metrics.Throughput(0, 0); fps != 0 {
		t.Fatalf("throughput with zero frames = %f, want 0", fps)
	}
}
