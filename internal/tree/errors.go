package tree

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned (possibly wrapped) by Backend implementations
// when a node or property row does not exist. It is a storage-level signal;
// the stores translate it into a typed *Error for callers.
var ErrRecordNotFound = errors.New("record not found")

// ErrorCode categorizes node store errors.
type ErrorCode string

const (
	// ErrCodeParentNotFound indicates CreateNode referenced a parent path
	// that does not resolve to a node.
	ErrCodeParentNotFound ErrorCode = "PARENT_NOT_FOUND"

	// ErrCodeNodeNotFound indicates a node path or id did not resolve.
	ErrCodeNodeNotFound ErrorCode = "NODE_NOT_FOUND"

	// ErrCodePathConflict indicates a node with the same path already exists.
	ErrCodePathConflict ErrorCode = "PATH_CONFLICT"

	// ErrCodeInvalidInput indicates a malformed name, key, path or value.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Error is a typed node store error.
//
// Resolution failures (ParentNotFound, NodeNotFound) are detected before any
// write is attempted, so an operation failing with one of them has not
// modified the store.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the node path involved, if any.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewParentNotFoundError creates an Error for an unresolvable parent path.
func NewParentNotFoundError(parentPath string) *Error {
	return &Error{
		Code:    ErrCodeParentNotFound,
		Message: "parent not found",
		Path:    parentPath,
	}
}

// NewNodeNotFoundError creates an Error for an unresolvable node path.
func NewNodeNotFoundError(path string) *Error {
	return &Error{
		Code:    ErrCodeNodeNotFound,
		Message: "node not found",
		Path:    path,
	}
}

// NewPathConflictError creates an Error for a duplicate node path.
// err is the storage failure that detected the conflict, if any.
func NewPathConflictError(path string, err error) *Error {
	return &Error{
		Code:    ErrCodePathConflict,
		Message: "path already exists",
		Path:    path,
		Err:     err,
	}
}

// NewInvalidInputError creates an Error for malformed input.
func NewInvalidInputError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsParentNotFound reports whether err is a ParentNotFound error.
func IsParentNotFound(err error) bool {
	return hasCode(err, ErrCodeParentNotFound)
}

// IsNodeNotFound reports whether err is a NodeNotFound error.
func IsNodeNotFound(err error) bool {
	return hasCode(err, ErrCodeNodeNotFound)
}

// IsPathConflict reports whether err is a PathConflict error.
func IsPathConflict(err error) bool {
	return hasCode(err, ErrCodePathConflict)
}

// IsInvalidInput reports whether err is an InvalidInput error.
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrCodeInvalidInput)
}

// hasCode uses errors.As so wrapped errors are matched.
func hasCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}
