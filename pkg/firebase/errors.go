package firebase

import "errors"

var (
	ErrFailedToInit    = errors.New("failed to initialize firebase app")
	ErrMissingToken    = errors.New("missing id token")
	ErrInvalidToken    = errors.New("invalid id token")
	ErrUnauthenticated = errors.New("unauthenticated")
)
