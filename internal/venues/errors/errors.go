package errors

import "errors"

var ErrNotFound = errors.New("venue not found")
