// Package utils provides utility functions for geffe-go.
// This file contains safe arithmetic and allocation helpers that keep a
// misconfigured attack from exhausting memory.

package utils

import (
	"errors"
	"math"
)

// Maximum allowed sizes for the search structures.
const (
	// MaxDegree is the largest register length. States are packed into a uint64
	// during cycle traversal and 2^degree must not overflow.
	MaxDegree = 63

	// MaxKeystreamLength is the maximum number of keystream bits accepted.
	MaxKeystreamLength = 1 << 24 // 16M bits

	// MaxCandidates is the default cap on a correlation candidate list.
	MaxCandidates = 1 << 20

	// MaxPairs is the maximum size of the L1 x L2 candidate product. Compare
	// it as an int64 so 32-bit builds accept the constant.
	MaxPairs int64 = 1 << 34
)

var (
	// ErrOverflow indicates an integer overflow occurred.
	ErrOverflow = errors.New("integer overflow")

	// ErrExceedsLimit indicates a value exceeds the allowed limit.
	ErrExceedsLimit = errors.New("value exceeds allowed limit")

	// ErrInvalidLength indicates an invalid length value.
	ErrInvalidLength = errors.New("invalid length")
)

// SafeMultiply multiplies two non-negative integers and returns an error if overflow occurs.
func SafeMultiply(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, ErrInvalidLength
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt/b {
		return 0, ErrOverflow
	}
	return a * b, nil
}

// CycleBound returns 2^degree - 1, the longest possible period of a
// degree-bit register.
func CycleBound(degree int) (int, error) {
	if degree <= 0 {
		return 0, ErrInvalidLength
	}
	if degree > MaxDegree {
		return 0, ErrExceedsLimit
	}
	return int(uint64(1)<<uint(degree) - 1), nil
}

// SafeMakeBits creates a bit slice with bounds checking.
// Returns error if count is negative or exceeds maxAllowed.
func SafeMakeBits(count, maxAllowed int) ([]uint8, error) {
	if count < 0 {
		return nil, ErrInvalidLength
	}
	if count > maxAllowed {
		return nil, ErrExceedsLimit
	}
	return make([]uint8, count), nil
}

// CheckLength validates that length is within [0, maxAllowed].
func CheckLength(length, maxAllowed int) error {
	if length < 0 {
		return ErrInvalidLength
	}
	if length > maxAllowed {
		return ErrExceedsLimit
	}
	return nil
}

// CheckPositive validates that value is > 0.
func CheckPositive(value int, name string) error {
	if value <= 0 {
		return errors.New(name + " must be positive")
	}
	return nil
}

// SafeReadLength reads a uint32 length from data at offset, validates it, and returns the value.
// Returns error if not enough bytes available or length exceeds maxAllowed.
func SafeReadLength(data []byte, offset, maxAllowed int) (length int, newOffset int, err error) {
	if offset < 0 || offset+4 > len(data) {
		return 0, offset, errors.New("truncated length field")
	}
	raw := uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
	if raw > uint32(maxAllowed) || (maxAllowed > math.MaxInt32 && int(raw) < 0) {
		return 0, offset, ErrExceedsLimit
	}
	return int(raw), offset + 4, nil
}

// ValidateSliceAccess checks that accessing data[offset:offset+size] is safe.
func ValidateSliceAccess(data []byte, offset, size int) error {
	if offset < 0 || size < 0 {
		return ErrInvalidLength
	}
	if offset+size < offset {
		return ErrOverflow
	}
	if offset+size > len(data) {
		return errors.New("slice access out of bounds")
	}
	return nil
}
