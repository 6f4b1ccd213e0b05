// Package collector polls the game client's live-data endpoint for the active
// player and upserts one document per (riot id, match id) into a local SQLite
// database. Run tolerates a bounded streak of failures, then reconnects to the
// store and gives up with ErrStoreUnavailable when the store stays unreachable.
package collector
