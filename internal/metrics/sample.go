package metrics

import (
	"sort"
	"time"
)

// Sample is one frame's measurement. Nil fields mean the metric was not
// reported for the frame; zero is a valid score and is never substituted.
type Sample struct {
	Frame   int      `json:"frame"`
	PSNRAvg *float64 `json:"psnr_avg,omitempty"`
	PSNRY   *float64 `json:"psnr_y,omitempty"`
	PSNRU   *float64 `json:"psnr_u,omitempty"`
	PSNRV   *float64 `json:"psnr_v,omitempty"`
	SSIMAll *float64 `json:"ssim_all,omitempty"`
	SSIMY   *float64 `json:"ssim_y,omitempty"`
	SSIMU   *float64 `json:"ssim_u,omitempty"`
	SSIMV   *float64 `json:"ssim_v,omitempty"`
	VMAF    *float64 `json:"vmaf,omitempty"`
	VMAFNeg *float64 `json:"vmaf_neg,omitempty"`
}

// CPUSample is one point of the per-process CPU utilization time series
// recorded while an external tool runs.
type CPUSample struct {
	At      time.Time `json:"at"`
	Percent float64   `json:"percent"`
}

// Merge combines per-pass frame tables (PSNR, SSIM, VMAF runs are separate
// invocations) into a single table keyed by frame index. Later tables fill
// fields the earlier ones left unset; a frame present in any input appears in
// the output.
func Merge(tables ...[]Sample) []Sample {
	byFrame := make(map[int]*Sample)
	order := make([]int, 0)
	for _, table := range tables {
		for i := range table {
			src := &table[i]
			dst, ok := byFrame[src.Frame]
			if !ok {
				copied := *src
				byFrame[src.Frame] = &copied
				order = append(order, src.Frame)
				continue
			}
			fillSample(dst, src)
		}
	}
	sort.Ints(order)
	out := make([]Sample, 0, len(order))
	for _, frame := range order {
		out = append(out, *byFrame[frame])
	}
	return out
}

func fillSample(dst, src *Sample) {
	fill := func(d **float64, s *float64) {
		if *d == nil && s != nil {
			*d = s
		}
	}
	fill(&dst.PSNRAvg, src.PSNRAvg)
	fill(&dst.PSNRY, src.PSNRY)
	fill(&dst.PSNRU, src.PSNRU)
	fill(&dst.PSNRV, src.PSNRV)
	fill(&dst.SSIMAll, src.SSIMAll)
	fill(&dst.SSIMY, src.SSIMY)
	fill(&dst.SSIMU, src.SSIMU)
	fill(&dst.SSIMV, src.SSIMV)
	fill(&dst.VMAF, src.VMAF)
	fill(&dst.VMAFNeg, src.VMAFNeg)
}

func ptr(v float64) *float64 { return &v }
