// Package cache holds the two in-memory caches that sit in front of the asset
// directory: an existence cache that remembers stat results for a short TTL,
// and a content cache that keeps the bytes of small files keyed by absolute
// path and guarded by the file's modification-time validator. Both maps live
// in one Service behind a single mutex; filesystem calls are always made
// outside that lock. A Janitor sweeps expired entries on a fixed period and
// bulk-evicts the oldest content entries when the map grows past its bound,
// and an optional Watcher drops entries as soon as files under the root change.
// The Service is constructed explicitly and injected into the HTTP handler,
// the janitor, and the watcher, so every test can start from an empty cache.
package cache
