// Package memory configures Go's soft memory limit.
//
// A Raspberry Pi has little RAM and the server shares it with the capture
// process. Unlike GOMAXPROCS, GOMEMLIMIT is not derived automatically, so
// [ConfigureFromEnv] sets it from the environment early in main:
//
//   - GOMEMLIMIT: Standard Go variable. If set, it takes precedence and is
//     only reported.
//   - MEMORY_LIMIT: Memory available to the server, either in bytes or in a
//     human-readable form such as "256MiB" or "1GB".
//   - MEMORY_RATIO: Share of MEMORY_LIMIT given to the Go heap, between 0.0
//     and 1.0 (default 0.85). The remainder covers goroutine stacks, the
//     SQLite page cache and vcgencmd child processes.
package memory
