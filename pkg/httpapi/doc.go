// Package httpapi implements the HTTP Method Services (§4.8) and the Lock
// Manager & Dispatch layer (§4.9): per-method request handling (GET, HEAD,
// POST, PUT, PATCH, DELETE) over a pkg/repo.Repo stack, conditional-request
// evaluation, a per-resource name locker, and a namespace-validating
// dispatcher that routes by HTTP method rather than by path shape.
//
// Grounded on the teacher's pkg/api package (mux.Router-based Server,
// HandleFunc-per-route registration, httputil response helpers) and on
// manas_http's method-handler-over-a-repo shape from the original source;
// since every resource URI under the storage root is a legal route (not a
// small fixed set of REST endpoints), routing here is by HTTP method over
// a single path-prefix catch-all rather than per-resource mux patterns.
package httpapi
