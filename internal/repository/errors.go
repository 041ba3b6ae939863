package repository

import "errors"

// ErrNotFound record does not exist
var ErrNotFound = errors.New("record not found")
