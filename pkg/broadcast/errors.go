package broadcast

import "errors"

// ErrClosed is returned when publishing to a closed broadcaster.
var ErrClosed = errors.New("broadcast: broadcaster is closed")
