package data

import "errors"

var (
	// ErrNetwork is returned when the feed server cannot be reached, answers
	// with a non-success status or the transfer does not complete.
	ErrNetwork = errors.New("network error")
	// ErrTimeout is returned together with ErrNetwork when the fetch deadline expires.
	ErrTimeout = errors.New("timeout")
	// ErrUnexpectedStatus is returned together with ErrNetwork for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrDecode is returned when the downloaded payload cannot be decompressed.
	ErrDecode = errors.New("decode error")
	// ErrCacheIO is returned when the cache artifact cannot be read or written.
	ErrCacheIO = errors.New("cache I/O error")
	// ErrRefreshInProgress is returned when a refresh is requested while another one runs.
	ErrRefreshInProgress = errors.New("refresh already in progress")
)
