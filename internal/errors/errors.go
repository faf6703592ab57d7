// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. This enables better error categorization, logging,
// and user experience by providing context-aware error information.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import "fmt"

// Kind is a machine-readable error category.
type Kind string

const (
	// ManifestFailed indicates the game manifest could not be fetched or parsed.
	ManifestFailed Kind = "manifest_failed"
	// DownloadFailed indicates one or more game assets failed to cache.
	DownloadFailed Kind = "download_failed"
	// DownloadTimeout indicates no completion signal arrived within the download window.
	DownloadTimeout Kind = "download_timeout"
	// SyncDeferred indicates a progression flush failed and will be retried later.
	SyncDeferred Kind = "sync_deferred"
	// ChannelUnavailable indicates the cache worker daemon is not reachable.
	ChannelUnavailable Kind = "channel_unavailable"
	// StorageUnavailable indicates a local durable store could not be opened.
	StorageUnavailable Kind = "storage_unavailable"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }
