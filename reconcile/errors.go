package reconcile

import "errors"

var (
	// ErrLibraryFetchFailed aborts the run
	ErrLibraryFetchFailed = errors.New("library fetch failed")

	// ErrRecordReadFailed skips one input source
	ErrRecordReadFailed = errors.New("record read failed")

	// ErrPlaylistLookupFailed is recovered from by creating the playlist
	ErrPlaylistLookupFailed = errors.New("playlist lookup failed")

	// ErrPlaylistCreateFailed aborts one batch
	ErrPlaylistCreateFailed = errors.New("playlist create failed")

	// ErrPlaylistMutationFailed is reported on the outcome; the batch still counts
	ErrPlaylistMutationFailed = errors.New("playlist mutation failed")
)
