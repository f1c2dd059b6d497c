// Package query models the filter and pagination input of a product list fetch.
//
// A State is an immutable value: SetFilter, SetPage and friends return a new
// State. Two invariants hold for every State reachable through this API:
//
//   - Page is at least 1, so Offset is never negative.
//   - Changing any filter moves back to page 1.
//
// Filters use a fixed key schema (title, url, min_price, max_price,
// created_after, created_before, updated_after, updated_before). Blank values
// mean "no filter" and are never encoded into outgoing parameters:
//
//	s := query.New(query.DefaultPageSize).
//		SetFilter(query.KeyMinPrice, "10").
//		SetFilter(query.KeyTitle, "")
//	s.Values().Encode() // "limit=50&min_price=10&offset=0"
package query
