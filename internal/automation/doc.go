// Package automation drives the mail application's compose surface.
//
// The remote application mutates its own state on its own schedule: writes
// land after a re-render, early writes to a session that has not finished
// initializing are dropped, and saves are followed by a debounced network
// write. Nothing reports when a mutation has been applied, so every
// primitive here is an evaluate-then-poll protocol:
//
//   - OpenCompose snapshots the registry of open sessions, triggers the
//     open action and polls for a key that was not there before.
//   - SetField writes a field and polls a read-back, re-sending the write
//     when it does not show up.
//   - SaveDraft awaits the save promise; WaitSaved polls the dirty flag,
//     which is the only proof of persistence.
//   - CloseCompose calls the first close entry point that exists and polls
//     until the key leaves the registry.
//
// Exhausting a poll is an ordinary outcome (StatusExhausted), not an error.
// Errors are reserved for transport failures and for draft keys the remote
// side no longer knows (ErrDraftNotFound).
//
// All remote script text is built by Accessor from a config.Surface; no
// other code in this package writes JavaScript.
package automation
