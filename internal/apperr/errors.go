package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalid       = errors.New("invalid input")
	ErrConfigMissing = errors.New("remote settings incomplete")
	ErrLogin         = errors.New("login failed")
	ErrAccessCheck   = errors.New("allow-list unreadable")
	ErrUpload        = errors.New("upload failed")
	ErrAppend        = errors.New("row append failed")
	ErrDecode        = errors.New("image decode failed")
	ErrEncode        = errors.New("image encode failed")
)
