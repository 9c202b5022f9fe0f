// Package format renders status values for display: byte sizes, uptimes,
// load averages, temperatures and image timestamps.
//
// Output strings are consumed verbatim by the web client, so every helper
// produces a fixed, locale-independent layout.
package format
