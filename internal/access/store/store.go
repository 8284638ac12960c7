package store

import "errors"

// ErrNotFound is returned by lookups whose subject does not exist. Callers
// that treat absence as a normal state (membership checks, key lookups)
// match on it with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrExists is returned by creates whose subject is already present.
var ErrExists = errors.New("already exists")
