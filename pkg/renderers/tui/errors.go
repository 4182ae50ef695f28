package tui

import "errors"

var (
	// ErrAborted indicates the user interrupted the session (ctrl-c).
	ErrAborted = errors.New("tui: session aborted")
	// ErrNoUploader is returned when a schema contains a file field but no
	// upload collaborator was injected.
	ErrNoUploader = errors.New("tui: file field requires an uploader")
)
