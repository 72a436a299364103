// Package apperr defines the closed set of error classes the engine returns.
package apperr

import "errors"

var (
	// ErrFormat marks a structurally malformed manifest header.
	ErrFormat = errors.New("format error")
	// ErrValidation marks a missing or invalid required field, or an
	// identity mismatch between frontmatter name and directory name.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a skill or asset that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPathViolation marks a traversal or absolute-path escape attempt.
	ErrPathViolation = errors.New("path violation")
	// ErrAlreadyExists marks a create that targets an existing skill or file.
	ErrAlreadyExists = errors.New("already exists")
)
