// Package listing keeps the product list and its filtered total in sync with
// the current query.
//
// Every Begin bumps a generation counter. A Result is applied only when its
// generation is still the latest, so a slow response for an old query never
// overwrites a newer one regardless of arrival order. Failed syncs clear the
// records rather than pairing an old page with a new count.
package listing
