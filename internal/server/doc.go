// Package server hosts the Fiber HTTP service and its middleware chain.
// NewApp attaches panic recovery, request IDs and the permissive CORS policy,
// then mounts an injected ImageHandler on the local-image routes. Diagnostics
// endpoints live in the routes subpackage and are registered by the caller.
package server
