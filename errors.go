package avis

import "errors"

// ErrMissingURL is returned when the caller supplied no URL. The routing
// layer reports it separately from processing failures.
var ErrMissingURL = errors.New("avis: URL is required")
