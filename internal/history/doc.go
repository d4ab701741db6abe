// Package history implements the napkin version-history engine.
//
// The engine captures the state of a session's open documents into an
// append-only sequence of snapshots and can replay that sequence to recover
// any retained point.
//
// ARCHITECTURE:
//
// Components, leaves first:
//   - Fingerprint: cheap change-detection digest over a collection
//   - Diff: per-document add/remove/modify delta between two states
//   - Apply: pure application of a delta to a prior document
//   - Reconstruct: nearest preceding baseline plus forward replay
//   - Builder.CreateSnapshot: fingerprint gate, baseline/delta selection, append
//   - Prune: size cap plus promotion of the new oldest entry to a baseline
//
// Value Semantics:
// Every operation takes a History or Collection value and returns a new one.
// CreateSnapshot returns the identical *History when nothing changed, so
// callers can detect no-ops with a pointer comparison. Snapshots are never
// modified after creation; pruning promotes by building a new Snapshot value.
//
// The engine holds no global state and provides no locking. Callers own the
// History value and must serialize CreateSnapshot calls: a snapshot's position
// is implicit in call order.
//
// INVARIANTS:
//   - Each Snapshot holds exactly one of FullState or Deltas
//   - Snapshots[0] is a baseline whenever the sequence is non-empty
//   - len(Snapshots) <= MaxSnapshots after every CreateSnapshot
//   - Reconstructed shape order is surviving prior order, then added shapes
package history
