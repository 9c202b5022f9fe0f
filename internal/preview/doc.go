// Package preview keeps the thumbnail of the most recent capture in memory.
//
// A [Cache] watches a single file, normally <capture dir>/latest.jpg. Each
// refresh cycle stats the file and compares its fingerprint with the cached
// one; only a changed file is read again. The cache is either EMPTY (no
// state) or POPULATED (thumbnail, fingerprint and description together),
// and readers see one or the other without taking a lock.
//
// [Cache.Run] drives the cycle from a ticker. [Cache.Watch] optionally adds
// fsnotify events so a new capture shows up before the next tick.
package preview
