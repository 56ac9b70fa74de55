// Package dtypes defines the element types of the blobs managed by the device backends.
package dtypes

import (
	"strings"
)

// DType is the element type of a device blob.
type DType int32

//go:generate go tool enumer -type=DType dtypes.go

const (
	// InvalidDType represents an invalid (or not set) dtype.
	InvalidDType DType = iota
	Float32
	Float64
	Float16
	Int64
)

// Size returns the number of bytes of one element of the dtype, or 0 for InvalidDType.
func (dtype DType) Size() int {
	switch dtype {
	case Float32:
		return 4
	case Float64, Int64:
		return 8
	case Float16:
		return 2
	default:
		return 0
	}
}

// IsFloat returns whether dtype is a floating point type.
func (dtype DType) IsFloat() bool {
	return dtype == Float32 || dtype == Float64 || dtype == Float16
}

// SizeForElements returns the number of bytes needed to store numElements of dtype.
func (dtype DType) SizeForElements(numElements int) int {
	return dtype.Size() * numElements
}

// MapOfNames to their dtypes. It includes also aliases to the various dtypes, all in lower case.
// It is also filled with the lower case version of all names.
var MapOfNames = map[string]DType{
	"f32": Float32,
	"f64": Float64,
	"f16": Float16,
	"s64": Int64,
	"i64": Int64,
}

func init() {
	for _, dtype := range DTypeValues() {
		if dtype == InvalidDType {
			continue
		}
		MapOfNames[dtype.String()] = dtype
		MapOfNames[strings.ToLower(dtype.String())] = dtype
	}
}
