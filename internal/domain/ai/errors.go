package ai

import "errors"

// ErrMissingCredential indicates no API key was configured. This is a
// startup/config error surfaced at client construction, never per call.
var ErrMissingCredential = errors.New("ai credential missing")

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")
