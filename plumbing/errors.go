package plumbing

import "errors"

// Error kinds returned at the boundary of every exported operation in this
// module, per the error taxonomy. Callers should use errors.Is against
// these sentinels; wrapped context is added with fmt.Errorf("%w: ...", ...).
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidObject      = errors.New("invalid object")
	ErrInvalidPack        = errors.New("invalid pack")
	ErrInvalidDelta       = errors.New("invalid delta")
	ErrConflict           = errors.New("conflict")
	ErrPathConflict       = errors.New("path conflict")
	ErrNoEffectiveChanges = errors.New("no effective changes")
	ErrCancelled          = errors.New("cancelled")
	ErrUnexpectedEOF      = errors.New("unexpected eof")
	ErrIO                 = errors.New("io error")
)
