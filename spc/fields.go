package spc

import (
	"sort"

	"github.com/samber/lo"
)

// Field names one of the six logical fields of a structured point cloud.
type Field string

// The recognized fields.
const (
	FieldOctrees          Field = "octrees"
	FieldLengths          Field = "lengths"
	FieldMaxLevel         Field = "max_level"
	FieldPyramids         Field = "pyramids"
	FieldExsum            Field = "exsum"
	FieldPointHierarchies Field = "point_hierarchies"
)

// Fields lists every recognized field in canonical order.
var Fields = []Field{
	FieldOctrees,
	FieldLengths,
	FieldMaxLevel,
	FieldPyramids,
	FieldExsum,
	FieldPointHierarchies,
}

// DerivedFields lists the fields computed on demand.
var DerivedFields = []Field{
	FieldMaxLevel,
	FieldPyramids,
	FieldExsum,
	FieldPointHierarchies,
}

// ParseField returns the field with the given name.
func ParseField(name string) (Field, error) {
	f := Field(name)
	if !lo.Contains(Fields, f) {
		return "", &UnknownFieldError{Name: name}
	}
	return f, nil
}

// CheckKeys is for consumers accepting a ToDict mapping plus their own extra keys. It fails
// with an *UnknownFieldError naming the first key, in sorted order, that is neither a
// recognized field nor one of extra.
func CheckKeys(keys []string, extra ...string) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	for _, k := range sorted {
		if lo.Contains(Fields, Field(k)) || lo.Contains(extra, k) {
			continue
		}
		return &UnknownFieldError{Name: k}
	}
	return nil
}
