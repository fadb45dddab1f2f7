package gdb

import "github.com/rotisserie/eris"

// Sentinel errors. Test with errors.Is; every returned error wraps one of
// these or an underlying os/sqlite error.
var (
	ErrAlreadyExists = eris.New("already exists")
	ErrNotFound      = eris.New("not found")
	ErrInvalidName   = eris.New("invalid name")
)
