package chat

import "errors"

// ErrBusy indicates a send arrived while a prior send was outstanding.
// New sends are ignored, not queued.
var ErrBusy = errors.New("a chat request is already in flight")
