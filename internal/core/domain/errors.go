package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnsupportedDialect  = errors.New("unsupported dialect")
	ErrMetadataUnavailable = errors.New("index metadata unavailable")
	ErrEmptySelection      = errors.New("no droppable indexes selected")
	ErrBatchSuperseded     = errors.New("simulation batch superseded by a newer run")
	ErrUnknownWeight       = errors.New("unknown scoring weight")
	ErrNotDropStatement    = errors.New("not a DROP INDEX statement")
)
