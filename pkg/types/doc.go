// Package types defines the shared domain model: normalized posts, search
// queries, result envelopes, and the error kinds callers are expected to
// inspect.
package types
