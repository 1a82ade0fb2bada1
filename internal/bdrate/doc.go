// Package bdrate computes Bjontegaard Delta rate and metric comparisons
// between two rate-distortion curves.
//
// The procedure is the classic one: cubic least-squares fits in the
// (quality, log-bitrate) and (log-bitrate, quality) domains, integrated over
// the quality/rate interval both curves actually cover. Curves with fewer
// than four points, duplicate sample positions, or disjoint ranges are
// rejected rather than extrapolated.
package bdrate
