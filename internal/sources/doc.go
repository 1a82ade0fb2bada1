// Package sources expands user-supplied source specs (a literal path, a
// comma-separated list, a directory, or a glob) into an ordered, deduplicated
// set of existing files. Missing entries become warnings so a batch can keep
// going with whatever resolved.
package sources
