// Package media probes container and stream metadata via ffprobe.
package media
