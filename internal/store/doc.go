// Package store provides SQLite-backed durable storage for napkin session
// histories.
//
// A session's history is stored as:
//   - Sessions: one row per session with its retention policy
//   - Snapshots: one row per retained snapshot, keyed by (session, position)
//
// # Critical Patterns
//
// Whole-history writes:
//   - SaveHistory replaces every snapshot row of a session in one transaction
//   - Pruning and promotion rewrite positions, so partial updates are never used
//
// Deterministic reads:
//   - Snapshots are read ORDER BY position ASC
//   - Sessions are listed ORDER BY id COLLATE BINARY ASC
//
// Payloads:
//   - Baselines store the full collection as JSON
//   - Deltas store the per-tab delta list as JSON (an empty list is "[]")
//   - Encoding never HTML-escapes, matching the canonical attribute form
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a session cascades to its snapshots
package store
