// Package metrics parses external quality-tool reports into per-frame sample
// tables and aggregates them into job summaries.
//
// Supported report shapes: ffmpeg psnr stats files, ffmpeg ssim stats files,
// and libvmaf logs in JSON or CSV form. A metric a tool did not report stays
// unset on the sample; aggregates run over reporting frames only, so a gap in
// one metric never fabricates values or skews another.
package metrics
