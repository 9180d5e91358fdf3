package gostrata

import "errors"

var (
	// ErrNilDocument is returned when the pipeline is invoked without a document.
	ErrNilDocument = errors.New("gostrata: nil document")

	// ErrInvalidTree is returned when the block forest fails validation.
	ErrInvalidTree = errors.New("gostrata: invalid block tree")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("gostrata: invalid configuration")
)
