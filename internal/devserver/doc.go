// Package devserver is an in-memory implementation of the products API.
//
// It backs the --demo flag and the integration tests. Filtering follows the
// production backend: case-insensitive substring match on title and url,
// inclusive price bounds and created/updated date bounds. Delete failures and
// latency can be injected to exercise optimistic rollback.
package devserver
