// Package library keeps the gallery's view of every indexed folder in sync
// with the stream of lifecycle events produced by an external indexer.
//
// Each indexed root owns one ordered, de-duplicated collection of
// FileRecords keyed by normalized path. Events are applied through Apply (or
// Run, which drains a channel in order) and follow a small state machine per
// root:
//
//	Idle --Started--> Syncing --Progress*--> Syncing --CompletedSummary--> Idle
//
// Record upserts are idempotent: replaying an identical record changes
// nothing, a newer record for the same path replaces the old one in place and
// keeps its position. A batch becomes visible to readers as one step. Removals
// are explicit (RecordRemove); a completed pass only records its summary.
//
// Readers never block writers. Every root publishes immutable snapshots
// through an atomic pointer and records are stored in fixed-size
// copy-on-write chunks, so an upsert into a collection of hundreds of
// thousands of records copies only the chunks it touches.
//
// Writers serialize per root, so unrelated roots can be updated in
// parallel. Persistence and metrics hang off the Observer hook and never run
// blocking I/O on the apply path.
package library
