package backend

import "errors"

// ErrIDAlreadySet is returned by SetID when a backend's participant id
// has already been assigned.
var ErrIDAlreadySet = errors.New("backend: participant id already set")
