package builder

import "errors"

var (
	ErrInvalidColor    = errors.New("invalid dresscode color")
	ErrDuplicateColor  = errors.New("duplicate dresscode color")
	ErrTooManyColors   = errors.New("dresscode palette is full")
	ErrSaveInFlight    = errors.New("save in flight")
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
)
