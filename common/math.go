package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Equals compares two float32 values within an epsilon tolerance.
//
// Parameters:
//   - a, b: the values to compare
//   - eps: the comparison tolerance
//
// Returns:
//   - bool: true when |a-b| <= eps
func Equals(a, b, eps float32) bool {
	return math32.Abs(a-b) <= eps
}

// Clamp saturates v into the closed range [lo, hi].
//
// Parameters:
//   - lo: minimum allowed value
//   - hi: maximum allowed value
//   - v: value to clamp
//
// Returns:
//   - float32: the clamped value
func Clamp(lo, hi, v float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Wrap wraps v modulo into the half-open range [lo, hi).
//
// Parameters:
//   - lo: range lower bound
//   - hi: range upper bound
//   - v: value to wrap
//
// Returns:
//   - float32: the wrapped value
func Wrap(lo, hi, v float32) float32 {
	span := hi - lo
	if span <= 0 {
		return lo
	}
	v = math32.Mod(v-lo, span)
	if v < 0 {
		v += span
	}
	return v + lo
}

// Lerp performs linear interpolation between a and b by t in [0, 1].
//
// Parameters:
//   - a: value at t = 0
//   - b: value at t = 1
//   - t: interpolation factor
//
// Returns:
//   - float32: the interpolated value
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}
