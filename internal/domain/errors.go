package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for scene operations
var (
	// ErrUnsupportedFormat indicates the archive extension has no extractor
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrPathTraversal indicates an archive entry would be written outside the destination
	ErrPathTraversal = errors.New("archive entry escapes destination directory")

	// ErrNotANumber indicates the selection input could not be parsed as an integer
	ErrNotANumber = errors.New("selection is not a number")

	// ErrInvalidSelection indicates the selection is outside the catalog range
	ErrInvalidSelection = errors.New("selection out of range")

	// ErrSceneNotFound indicates no scene matched the requested name
	ErrSceneNotFound = errors.New("scene not found")

	// ErrAmbiguousScene indicates a name query matched more than one scene
	ErrAmbiguousScene = errors.New("scene name is ambiguous")

	// ErrDuplicateScene indicates two catalog entries share a name
	ErrDuplicateScene = errors.New("duplicate scene name")

	// ErrEmptyFilename indicates no usable file name could be derived from a URL
	ErrEmptyFilename = errors.New("cannot derive file name from URL")

	// ErrUnexpectedStatus indicates the server answered with a non-success status
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// ExtractError wraps a failure while unpacking an archive.
type ExtractError struct {
	Archive string
	Err     error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// HTTPStatusError reports a non-2xx response from a download server.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: %s: %d", e.URL, ErrUnexpectedStatus, e.StatusCode)
}

// Is lets errors.Is match ErrUnexpectedStatus.
func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
