package copywriter

import "errors"

var (
	ErrMissingAPIKey  = errors.New("gemini api key is required")
	ErrEmptyResponse  = errors.New("model returned no copy")
	ErrInvalidOutput  = errors.New("model returned malformed copy")
	ErrGenerateFailed = errors.New("copy generation failed")
)
