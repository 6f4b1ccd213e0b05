// Package assets owns the filesystem-facing rules of the local image server:
// confining caller-supplied relative paths to the configured asset root,
// mapping file extensions to response content types, and deriving the
// modification-time validator used as the HTTP ETag. Everything here is a pure
// function of its inputs plus the immutable root, so it needs no locking.
package assets
