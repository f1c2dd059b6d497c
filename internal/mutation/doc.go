// Package mutation coordinates changes to products.
//
// A delete is checked for conflicts, confirmed through a caller-supplied
// gate, applied optimistically to the listing snapshot and then sent to the
// backend in the background. When the backend refuses, the optimistic edit is
// rolled back and an error Notification is emitted. Creates share the same
// request and notify cycle without the optimistic step.
package mutation
