// Package main hosts the vqa CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into template
// batches, ad-hoc comparisons, BD-Rate computations, job inspection, and
// configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience.
//
// Keep this package lean: new functionality belongs in the internal packages
// first, surfaced here through dedicated commands or flags.
package main
