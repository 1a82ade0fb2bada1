package metrics

import (
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"

	"vqa/internal/services"
)

// VMAFReport is the parsed form of a libvmaf log: per-frame samples plus the
// pooled summary libvmaf computes itself (JSON logs only; CSV logs get pooled
// values recomputed from the frames).
type VMAFReport struct {
	Samples      []Sample
	PooledMean   *float64
	HarmonicMean *float64
	NegMean      *float64
}

// ParseVMAF accepts a libvmaf JSON log or a frame-per-row CSV log.
func ParseVMAF(raw string) (*VMAFReport, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrParse, "metrics", "vmaf", "empty report", nil)
	}
	if strings.HasPrefix(trimmed, "{") {
		return parseVMAFJSON(trimmed)
	}
	return parseVMAFCSV(trimmed)
}

type vmafJSON struct {
	Frames []struct {
		FrameNum int                `json:"frameNum"`
		Metrics  map[string]float64 `json:"metrics"`
	} `json:"frames"`
	PooledMetrics map[string]struct {
		Mean         *float64 `json:"mean"`
		HarmonicMean *float64 `json:"harmonic_mean"`
	} `json:"pooled_metrics"`
}

func parseVMAFJSON(raw string) (*VMAFReport, error) {
	var parsed vmafJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, services.Wrap(services.ErrParse, "metrics", "vmaf", "malformed json report", err)
	}
	if len(parsed.Frames) == 0 {
		return nil, services.Wrap(services.ErrParse, "metrics", "vmaf", "report contains zero frames", nil)
	}

	report := &VMAFReport{}
	for _, frame := range parsed.Frames {
		sample := Sample{Frame: frame.FrameNum}
		if v, ok := frame.Metrics["vmaf"]; ok {
			sample.VMAF = ptr(v)
		}
		if v, ok := frame.Metrics["vmaf_neg"]; ok {
			sample.VMAFNeg = ptr(v)
		}
		report.Samples = append(report.Samples, sample)
	}
	if pooled, ok := parsed.PooledMetrics["vmaf"]; ok {
		report.PooledMean = pooled.Mean
		report.HarmonicMean = pooled.HarmonicMean
	}
	if pooled, ok := parsed.PooledMetrics["vmaf_neg"]; ok {
		report.NegMean = pooled.Mean
	}
	return report, nil
}

func parseVMAFCSV(raw string) (*VMAFReport, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "metrics", "vmaf", "malformed csv report", err)
	}
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrParse, "metrics", "vmaf", "empty report", nil)
	}

	header := records[0]
	frameCol, vmafCol, negCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "frame", "frame_num", "index":
			frameCol = i
		case "vmaf":
			vmafCol = i
		case "vmaf_neg":
			negCol = i
		}
	}
	if vmafCol == -1 {
		return nil, services.Wrap(services.ErrParse, "metrics", "vmaf", "csv header lacks a vmaf column", nil)
	}
	if len(records) == 1 {
		return nil, services.Wrap(services.ErrParse, "metrics", "vmaf", "report contains zero frames", nil)
	}

	report := &VMAFReport{}
	var vmafValues, negValues []float64
	for rowIdx, row := range records[1:] {
		frame := rowIdx
		if frameCol >= 0 && frameCol < len(row) {
			if parsed, err := strconv.Atoi(strings.TrimSpace(row[frameCol])); err == nil {
				frame = parsed
			}
		}
		sample := Sample{Frame: frame}
		if vmafCol < len(row) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[vmafCol]), 64); err == nil {
				sample.VMAF = ptr(v)
				vmafValues = append(vmafValues, v)
			}
		}
		if negCol >= 0 && negCol < len(row) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[negCol]), 64); err == nil {
				sample.VMAFNeg = ptr(v)
				negValues = append(negValues, v)
			}
		}
		report.Samples = append(report.Samples, sample)
	}

	if len(vmafValues) > 0 {
		report.PooledMean = ptr(mean(vmafValues))
		if h := harmonicMean(vmafValues); h > 0 {
			report.HarmonicMean = ptr(h)
		}
	}
	if len(negValues) > 0 {
		report.NegMean = ptr(mean(negValues))
	}
	return report, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func harmonicMean(values []float64) float64 {
	count := 0
	sum := 0.0
	for _, v := range values {
		if v > 0 {
			sum += 1.0 / v
			count++
		}
	}
	if count == 0 || sum == 0 {
		return 0
	}
	return float64(count) / sum
}
