package session

import "errors"

// ErrClosed is returned by Acquire after Close has been called.
var ErrClosed = errors.New("session manager is closed")
