// Package localimage serves files from the asset root over GET /local-image.
// The handler resolves the requested path inside the sandbox and answers
// conditional requests from the modification-time validator. Small files are
// served from the content cache and larger ones are streamed from disk in
// fixed-size chunks.
package localimage
