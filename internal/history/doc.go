// Package history stores the raw readings of every full status refresh in
// a SQLite database so the web client can chart temperature, load and free
// disk space over time.
//
// A [Store] is registered as a status observer. Each reading is written in
// its own statement and samples older than the retention window are pruned
// on the way in, so the database stays small on an SD card.
package history
