package docstore

import "errors"

var (
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrMissingProject = errors.New("firebase project id is required")
)
