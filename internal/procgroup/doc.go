// Package procgroup manages the process groups of external tools so that a
// cancelled or timed-out run cannot leave stray children behind.
package procgroup
