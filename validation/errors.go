package validation

import "errors"

var (
	ErrNoFile            = errors.New("no file selected")
	ErrInvalidFileType   = errors.New("please upload an Excel file (.xlsx)")
	ErrFileTooLarge      = errors.New("file size exceeds upload limit")
	ErrExtensionMismatch = errors.New("file extension does not match content")
)
