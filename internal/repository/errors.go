// Package repository defines the record store contract, its backends and
// the error values shared with higher layers.  Handlers translate
// ErrNotFound into an HTTP 404 response.
package repository

import "errors"

// ErrNotFound is returned when no reservation has the requested id.
var ErrNotFound = errors.New("reservation not found")
