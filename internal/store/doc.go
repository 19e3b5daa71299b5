// Package store provides SQLite-backed durable state for sqlpoll instances.
//
// The store keeps two things per instance:
//   - Parameters: the runtime parameters (sql_last_start and the
//     last_min_/last_max_ watermarks) as of the end of the last cycle, so a
//     restarted poller resumes where it stopped.
//   - Cycles: one history row per executed cycle, numbered by the
//     controller's logical sequence.
//
// # Ordering
//
// History queries order by seq, never by timestamp. Wall-clock times are
// recorded for operators but carry no ordering guarantee.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
