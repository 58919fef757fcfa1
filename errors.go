package cloudqueue

import "errors"

var (
	// ErrQueueNotFound is returned by QueueService implementations when the
	// named queue does not exist. Most call sites treat it as a logical
	// no-op rather than a fault; see SPEC_FULL.md §7.
	ErrQueueNotFound = errors.New("cloudqueue: queue not found")

	// ErrBlobNotFound is returned by BlobStorage.Get when no object exists
	// under the given container and name. Most implementations should
	// prefer the (data, found, err) tuple over returning this error, but it
	// is available for implementations that can't express "not found" any
	// other way.
	ErrBlobNotFound = errors.New("cloudqueue: blob not found")

	// ErrMessageTooLarge is returned by QueueService.AddMessage when the
	// backend rejects a message on size grounds even though it passed the
	// provider's own pre-check. Put and the abandon re-put path both catch
	// it and fall back to the overflow path on a single retry.
	ErrMessageTooLarge = errors.New("cloudqueue: message exceeds maximum size")

	// ErrMessageNotCheckedOut is returned by Delete, Abandon and Persist
	// when the supplied payload does not match any entry in the checkout
	// table.
	ErrMessageNotCheckedOut = errors.New("cloudqueue: message is not checked out")

	// ErrPersistedRecordNotFound is returned by GetPersisted,
	// RestorePersisted and DeletePersisted when no record exists under the
	// given store and key.
	ErrPersistedRecordNotFound = errors.New("cloudqueue: persisted record not found")

	// ErrInvalidVisibility is returned by Get when the visibility timeout
	// is not positive.
	ErrInvalidVisibility = errors.New("cloudqueue: visibility timeout must be positive")

	// ErrInvalidCount is returned by Get when the requested message count
	// is not positive.
	ErrInvalidCount = errors.New("cloudqueue: count must be positive")
)
