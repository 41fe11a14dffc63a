package service

import "errors"

var (
	// ErrCancelled is returned when the user dismisses the password prompt.
	ErrCancelled        = errors.New("operation cancelled by user")
	ErrNotRegularFile   = errors.New("not a regular file")
	ErrSaveInProgress   = errors.New("a save is already in progress")
	ErrNotInitialized   = errors.New("storage is not initialized")
	ErrUnknownDocType   = errors.New("unknown document type")
	ErrPasswordRequired = errors.New("password required")
	// ErrIntegrity blocks writes to a store that failed its integrity check.
	ErrIntegrity = errors.New("store failed integrity check")
)
