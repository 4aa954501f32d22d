package spc

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch is returned when raw or derived fields have shapes, dtypes or sizes
	// inconsistent with each other or with lengths.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrMalformedOctree is returned when occupancy bytes do not partition into levels that
	// end exactly at an octree's length.
	ErrMalformedOctree = errors.New("malformed octree")

	// ErrIndexOverflow is returned when a node index or coordinate does not fit its integer
	// width.
	ErrIndexOverflow = errors.New("index overflow")

	// ErrInconsistentIndex is returned when supplied derived fields disagree with octrees.
	ErrInconsistentIndex = errors.New("inconsistent index")

	// ErrUnknownField is returned when a field name is not one of the recognized fields.
	ErrUnknownField = errors.New("unknown field")
)

// UnknownFieldError names the unrecognized field. It matches ErrUnknownField with errors.Is.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unexpected field %q", e.Name)
}

// Is reports whether target is ErrUnknownField.
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

func shapeMismatchf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrShapeMismatch, format, args...)
}

func malformedf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedOctree, format, args...)
}

func overflowf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrIndexOverflow, format, args...)
}

func inconsistentf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInconsistentIndex, format, args...)
}
