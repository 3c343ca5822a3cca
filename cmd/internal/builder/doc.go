// Package builder holds the draft-invitation document a couple edits in the
// wizard before anything is persisted server-side.
//
// It is split into three parts:
//   - Store: the in-memory state container with granular synchronous mutators
//   - Snapshot: a versioned local file the document survives restarts in
//   - Syncer: the save orchestration against the invitations API
package builder
