// Package apperr holds the sentinel errors shared across liblearn.
package apperr

import "errors"

var (
	// ErrResolution means the target path does not name any live entity.
	ErrResolution = errors.New("cannot resolve target")
	// ErrTypeKind means the target resolved to something other than a class or module.
	ErrTypeKind = errors.New("target must be class or module")
	// ErrEmptyEntity means no routine of the target survived filtering.
	ErrEmptyEntity = errors.New("target has no eligible routines")

	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
