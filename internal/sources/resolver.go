package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolvedFrom records which resolution rule produced a source file.
type ResolvedFrom string

const (
	FromLiteral ResolvedFrom = "literal"
	FromList    ResolvedFrom = "list"
	FromDir     ResolvedFrom = "dir"
	FromGlob    ResolvedFrom = "glob"
)

// SourceFile is a filesystem path known to exist at resolution time.
type SourceFile struct {
	Path         string       `json:"path"`
	ResolvedFrom ResolvedFrom `json:"resolved_from"`
	Size         int64        `json:"size"`
}

// Resolution is the ordered, deduplicated outcome of resolving a source spec.
// Entries that could not be resolved surface as warnings, never as errors.
type Resolution struct {
	Files    []SourceFile `json:"files"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Container extensions a directory scan picks up.
var supportedExtensions = map[string]struct{}{
	".mp4": {},
	".mkv": {},
	".avi": {},
	".mov": {},
	".flv": {},
	".yuv": {},
}

// SupportedExtension reports whether a path carries one of the recognized
// video extensions.
func SupportedExtension(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Resolve expands a user-supplied source spec into concrete files.
//
// Precedence: comma-separated list of literal paths, then single file, then
// directory scan over supported extensions, then glob expansion. Resolution is
// idempotent against an unchanged filesystem and the returned order is stable:
// list entries keep their input order, directory and glob results sort
// lexicographically by path.
func Resolve(spec string) Resolution {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return Resolution{Warnings: []string{"empty source spec"}}
	}

	if strings.Contains(trimmed, ",") {
		return resolveList(trimmed)
	}

	if info, err := os.Stat(trimmed); err == nil && info.Mode().IsRegular() {
		return dedupe([]SourceFile{newSourceFile(trimmed, FromLiteral, info.Size())}, nil)
	} else if err == nil && info.IsDir() {
		return resolveDir(trimmed)
	}

	if strings.ContainsAny(trimmed, "*?[") {
		return resolveGlob(trimmed)
	}

	return Resolution{Warnings: []string{fmt.Sprintf("no files matched %q", trimmed)}}
}

func resolveList(spec string) Resolution {
	var files []SourceFile
	var warnings []string
	for _, segment := range strings.Split(spec, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		info, err := os.Stat(segment)
		if err != nil || !info.Mode().IsRegular() {
			warnings = append(warnings, fmt.Sprintf("file does not exist: %s", segment))
			continue
		}
		files = append(files, newSourceFile(segment, FromList, info.Size()))
	}
	return dedupe(files, warnings)
}

func resolveDir(dir string) Resolution {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Resolution{Warnings: []string{fmt.Sprintf("read directory %s: %v", dir, err)}}
	}
	var files []SourceFile
	for _, entry := range entries {
		if entry.IsDir() || !SupportedExtension(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, newSourceFile(path, FromDir, info.Size()))
	}
	sortByPath(files)
	res := dedupe(files, nil)
	if len(res.Files) == 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("no supported video files in %s", dir))
	}
	return res
}

func resolveGlob(pattern string) Resolution {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return Resolution{Warnings: []string{fmt.Sprintf("bad glob pattern %q: %v", pattern, err)}}
	}
	var files []SourceFile
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, newSourceFile(match, FromGlob, info.Size()))
	}
	sortByPath(files)
	res := dedupe(files, nil)
	if len(res.Files) == 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("no files matched %q", pattern))
	}
	return res
}

func newSourceFile(path string, from ResolvedFrom, size int64) SourceFile {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return SourceFile{Path: path, ResolvedFrom: from, Size: size}
}

func sortByPath(files []SourceFile) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}

func dedupe(files []SourceFile, warnings []string) Resolution {
	seen := make(map[string]struct{}, len(files))
	out := files[:0]
	for _, f := range files {
		if _, ok := seen[f.Path]; ok {
			continue
		}
		seen[f.Path] = struct{}{}
		out = append(out, f)
	}
	return Resolution{Files: out, Warnings: warnings}
}
