package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of build errors
type ErrorType int

const (
	ErrInvalidConfig ErrorType = iota
	ErrMetadata
	ErrFileOp
	ErrSigning
	ErrBundling
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrMetadata:
		return "Metadata"
	case ErrFileOp:
		return "FileOp"
	case ErrSigning:
		return "Signing"
	case ErrBundling:
		return "Bundling"
	default:
		return "Unknown"
	}
}

// BuildError represents an error that aborted a package build
type BuildError struct {
	Type    ErrorType
	Package string
	Err     error
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Package, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *BuildError) Unwrap() error {
	return e.Err
}

// NewBuildError wraps err into a BuildError of the given type
func NewBuildError(t ErrorType, pkg string, err error) *BuildError {
	return &BuildError{Type: t, Package: pkg, Err: err}
}

// IsType reports whether err wraps a BuildError of type t
func IsType(err error, t ErrorType) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Type == t
}
