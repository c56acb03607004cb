// Package session owns the backend conversation identity and the local
// conversation log.
//
// The Lifecycle creates the backend session lazily on first use, never
// issues two concurrent create requests (concurrent callers await the same
// in-flight result), and tears the identity down explicitly via Clear.
// Clearing also cancels any registered in-flight token stream so no stale
// reply can land in a new conversation.
//
// The conversation log is append-only. While a reply streams in, its
// fragments accumulate in a TokenBuffer that is flushed into the log exactly
// once at completion, or discarded when the stream is cancelled.
package session
