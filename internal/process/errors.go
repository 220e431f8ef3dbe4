// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"fmt"
	"io/fs"
)

// MissingInputError reports a referenced input file that does not exist.
// Callers distinguish it from format errors with errors.As.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("input file not found: %s", e.Path)
}

// Unwrap lets errors.Is(err, fs.ErrNotExist) hold for missing inputs.
func (e *MissingInputError) Unwrap() error {
	return fs.ErrNotExist
}

// InvalidInputFormatError reports an input file whose contents do not decode
// into any recognized item-collection shape.
type InvalidInputFormatError struct {
	Path   string
	Reason string
}

func (e *InvalidInputFormatError) Error() string {
	return fmt.Sprintf("invalid input format in %s: %s", e.Path, e.Reason)
}
