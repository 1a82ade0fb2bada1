package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"

	"vqa/internal/jobs"
	"vqa/internal/metrics"
)

const (
	ansiGreen  = "\x1b[32m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusLabel(status jobs.Status, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	switch status {
	case jobs.StatusCompleted:
		return ansiGreen + label + ansiReset
	case jobs.StatusFailed:
		return ansiRed + label + ansiReset
	case jobs.StatusCancelled, jobs.StatusPending:
		return ansiYellow + label + ansiReset
	}
	return label
}

func formatAggregate(agg *metrics.Aggregate) string {
	if agg == nil {
		return "-"
	}
	return strconv.FormatFloat(agg.Mean, 'f', 2, 64)
}

func formatChannelMean(ch *metrics.ChannelAggregates) string {
	if ch == nil {
		return "-"
	}
	return formatAggregate(ch.Avg)
}

func formatBitrate(bps int64) string {
	if bps <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f kb/s", float64(bps)/1000)
}

func formatTimestamp(ts *time.Time) string {
	if ts == nil {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
