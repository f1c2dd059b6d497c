// Package catalog provides an HTTP client for the products REST API.
//
// # Overview
//
// The client covers the four endpoints the listing UI needs:
//
//   - GET /products/: one page of products (filters + limit + offset)
//   - GET /products/stats/: total_products for the filtered set (filters only)
//   - DELETE /products/{id}/: remove a product, any 2xx is success
//   - POST /products/: create a product
//
// # Response Normalization
//
// The list endpoint has been deployed with two shapes over time, a bare JSON
// array and a {"data": [...]} envelope. Both decode to the same []Product. A
// missing, null or non-array list decodes to an empty slice. A body that is
// not JSON at all, or an item that cannot be decoded, is a
// MalformedResponseError.
//
// Prices may arrive as JSON numbers or decimal strings, and older payloads
// carry current_price instead of price.
//
// # Errors
//
// Every method returns one of three error types so callers can react without
// string matching:
//
//   - *NetworkError: the request was not sent or no response arrived
//     (connection refused, timeout, rate limiter wait cancelled)
//   - *BackendError: non-2xx status, with the backend's detail message
//   - *MalformedResponseError: the body did not have the expected shape
//
// Describe renders any of them as a short human-readable message.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and a per-client timeout (default 5s)
//   - Wait on an optional token-bucket limiter before sending
//   - Set Accept, User-Agent and a fresh X-Request-ID header
//   - Go through an otelhttp transport so spans propagate when a tracer
//     provider is installed
package catalog
