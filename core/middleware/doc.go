// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation protecting the entity API.
//   - rayid: assigns every request a RayID, stored in the context and echoed
//     in the X-Ray-ID response header for tracing.
//
// rayid must be registered first so every log line of a request carries the id.
package middleware
