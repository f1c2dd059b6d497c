// Package ui provides the terminal interface for browsing the product
// catalog.
//
// The UI is a Bubble Tea program. Model owns no list state of its own: every
// render reads the listing.Snapshot last handed out by the Synchronizer, and
// every write goes through the Synchronizer (paging, filters, refresh) or the
// mutation.Coordinator (delete, create).
//
// # Layout
//
//   - Header: API host, sync status or spinner, Page p/N, total count, active filters
//   - Command bar: short key hints and the current theme
//   - Table: ID, title, price, created, updated and url of the current page
//   - Toast line: the latest mutation outcome, cleared after three seconds
//
// # Sync flow
//
// Changing page or filters calls Synchronizer.Begin, which publishes a
// loading snapshot and returns a ticket. The fetch runs as a tea.Cmd and its
// result comes back as syncResultMsg; Synchronizer.Apply drops it when a
// newer ticket exists, so a slow page never overwrites a faster one.
//
// # Mutations
//
// Deletes are confirmed in a modal, then applied optimistically by the
// coordinator. Its notifications arrive over a channel; each one re-reads the
// snapshot, since a failed delete restores the removed row.
package ui
