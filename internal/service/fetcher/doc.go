// Package fetcher downloads the artifact a formula publishes for the host
// architecture.
//
// The body is streamed into a private temporary directory and hashed while
// it is written. Downloads are bounded by a timeout and a maximum size and
// follow the caller's context, so a termination signal aborts the transfer.
// Every failure path removes the temporary directory; on success the caller
// owns the Artifact and must call Cleanup.
package fetcher
