package metrics

import (
	"math"
	"time"
)

// Aggregate is the mean/min/max of a metric over the frames that report it.
type Aggregate struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// ChannelAggregates groups the averaged and per-plane aggregates of a
// channelized metric (PSNR, SSIM).
type ChannelAggregates struct {
	Avg *Aggregate `json:"avg,omitempty"`
	Y   *Aggregate `json:"y,omitempty"`
	U   *Aggregate `json:"u,omitempty"`
	V   *Aggregate `json:"v,omitempty"`
}

// Summary aggregates every sample of a job. Derived once by the parser side;
// never mutated afterwards.
type Summary struct {
	FrameCount       int                `json:"frame_count"`
	PSNR             *ChannelAggregates `json:"psnr,omitempty"`
	SSIM             *ChannelAggregates `json:"ssim,omitempty"`
	VMAF             *Aggregate         `json:"vmaf,omitempty"`
	VMAFNeg          *Aggregate         `json:"vmaf_neg,omitempty"`
	VMAFHarmonicMean *float64           `json:"vmaf_harmonic_mean,omitempty"`
	BitRateBPS       int64              `json:"bit_rate_bps,omitempty"`
	ThroughputFPS    float64            `json:"throughput_fps,omitempty"`
	WallClock        time.Duration      `json:"wall_clock_ns,omitempty"`
	CPUSamples       []CPUSample        `json:"cpu_samples,omitempty"`
}

// Summarize computes aggregates over the merged frame table. Metrics absent
// from every frame stay nil; metrics present on a subset aggregate over that
// subset only.
func Summarize(samples []Sample) *Summary {
	s := &Summary{FrameCount: len(samples)}

	psnr := &ChannelAggregates{
		Avg: aggregate(samples, func(sm *Sample) *float64 { return sm.PSNRAvg }),
		Y:   aggregate(samples, func(sm *Sample) *float64 { return sm.PSNRY }),
		U:   aggregate(samples, func(sm *Sample) *float64 { return sm.PSNRU }),
		V:   aggregate(samples, func(sm *Sample) *float64 { return sm.PSNRV }),
	}
	if psnr.Avg != nil || psnr.Y != nil {
		s.PSNR = psnr
	}

	ssim := &ChannelAggregates{
		Avg: aggregate(samples, func(sm *Sample) *float64 { return sm.SSIMAll }),
		Y:   aggregate(samples, func(sm *Sample) *float64 { return sm.SSIMY }),
		U:   aggregate(samples, func(sm *Sample) *float64 { return sm.SSIMU }),
		V:   aggregate(samples, func(sm *Sample) *float64 { return sm.SSIMV }),
	}
	if ssim.Avg != nil || ssim.Y != nil {
		s.SSIM = ssim
	}

	s.VMAF = aggregate(samples, func(sm *Sample) *float64 { return sm.VMAF })
	s.VMAFNeg = aggregate(samples, func(sm *Sample) *float64 { return sm.VMAFNeg })
	return s
}

// minMeasurableDuration guards the fps derivation against a zero or absurdly
// small wall clock.
const minMeasurableDuration = time.Millisecond

// Throughput derives encode throughput in frames per second.
func Throughput(frameCount int, elapsed time.Duration) float64 {
	if frameCount <= 0 {
		return 0
	}
	if elapsed < minMeasurableDuration {
		elapsed = minMeasurableDuration
	}
	return float64(frameCount) / elapsed.Seconds()
}

func aggregate(samples []Sample, pick func(*Sample) *float64) *Aggregate {
	agg := &Aggregate{Min: math.Inf(1), Max: math.Inf(-1)}
	total := 0.0
	for i := range samples {
		v := pick(&samples[i])
		if v == nil {
			continue
		}
		total += *v
		if *v < agg.Min {
			agg.Min = *v
		}
		if *v > agg.Max {
			agg.Max = *v
		}
		agg.Count++
	}
	if agg.Count == 0 {
		return nil
	}
	agg.Mean = total / float64(agg.Count)
	return agg
}
