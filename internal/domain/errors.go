package domain

import "errors"

// ErrValidation is returned when input fails validation before any trip-log
// query runs (e.g. missing driver id, malformed date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")
