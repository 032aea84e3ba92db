package utils

import (
	"crypto/rand"
	"io"
)

var RandReader io.Reader = rand.Reader

// SecureRandomBytes generates n cryptographically secure random bytes.
// It uses crypto/rand, which relies on the operating system's CSPRNG.
func SecureRandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := RandReader.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// RandomState returns a uniformly random non-zero register state of the
// given degree. The random bytes are used as a seed for DeriveState.
func RandomState(degree int) ([]uint8, error) {
	if err := CheckPositive(degree, "degree"); err != nil {
		return nil, err
	}
	if degree > MaxDegree {
		return nil, ErrExceedsLimit
	}
	seed, err := SecureRandomBytes(32)
	if err != nil {
		return nil, err
	}
	return DeriveState(seed, degree), nil
}
