package fs

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes filesystem errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the path does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeParentNotFound indicates the path's parent directory does not exist.
	ErrCodeParentNotFound ErrorCode = "PARENT_NOT_FOUND"

	// ErrCodeAlreadyExists indicates a create collided with an existing path.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// ErrCodeTargetExists indicates a rename target is a non-empty directory.
	ErrCodeTargetExists ErrorCode = "TARGET_EXISTS"

	// ErrCodeNotADirectory indicates a directory operation hit a file.
	ErrCodeNotADirectory ErrorCode = "NOT_A_DIRECTORY"

	// ErrCodeIsADirectory indicates a file operation hit a directory.
	ErrCodeIsADirectory ErrorCode = "IS_A_DIRECTORY"

	// ErrCodeDirectoryNotEmpty indicates a non-recursive remove of a non-empty directory.
	ErrCodeDirectoryNotEmpty ErrorCode = "DIRECTORY_NOT_EMPTY"

	// ErrCodeInvalidPath indicates a malformed or forbidden path argument.
	ErrCodeInvalidPath ErrorCode = "INVALID_PATH"
)

// Error is a structural filesystem error. It always carries the offending
// path so the caller can decide remediation without parsing the message.
type Error struct {
	Code ErrorCode
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Path)
}

func newError(code ErrorCode, path string) *Error {
	return &Error{Code: code, Path: path}
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a filesystem
// error. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsNotFound returns true if the error is a missing-path error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsParentNotFound returns true if the error is a missing-parent error.
func IsParentNotFound(err error) bool {
	return CodeOf(err) == ErrCodeParentNotFound
}

// IsAlreadyExists returns true if the error is a create collision.
func IsAlreadyExists(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyExists
}
