package invitation

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("invitation not found")
	ErrNotEditable    = errors.New("invitation is not a draft")
	ErrNotPublishable = errors.New("invitation is not paid")
	ErrSlugTaken      = errors.New("slug already in use")
)
