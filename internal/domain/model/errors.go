package model

import "errors"

// ErrNotFound reports that no data has been recorded yet. Not a system fault.
var ErrNotFound = errors.New("not found")
