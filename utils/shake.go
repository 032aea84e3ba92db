package utils

import (
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/sha3"
)

const (
	// MaxHashConcatInputSize bounds each input of HashConcat.
	MaxHashConcatInputSize = 100 * 1024 * 1024
)

var shake256Pool = sync.Pool{
	New: func() interface{} {
		return sha3.NewShake256()
	},
}

// Shake256 computes the SHAKE256 extendable output function (XOF).
// It takes an input byte slice and generates an output of the specified length.
func Shake256(input []byte, outputLen int) []byte {
	h := shake256Pool.Get().(sha3.ShakeHash)
	defer func() {
		h.Reset()
		shake256Pool.Put(h)
	}()

	h.Write(input)
	output := make([]byte, outputLen)
	_, _ = h.Read(output)
	return output
}

// HashWithDomain computes a domain-separated SHA3-256 hash.
// It prefixes the data with the length of the domain string and the domain string itself.
// Panics if domain is longer than 255 bytes.
func HashWithDomain(domain string, data []byte) []byte {
	domainBytes := []byte(domain)
	if len(domainBytes) > 255 {
		panic("domain string must be at most 255 bytes")
	}
	h := sha3.New256()
	h.Write([]byte{byte(len(domainBytes))})
	h.Write(domainBytes)
	h.Write(data)
	return h.Sum(nil)
}

// HashConcat computes the SHA3-256 hash of the concatenation of multiple byte slices.
// Each slice is prefixed with its length (4 bytes, little-endian) to ensure unique encoding.
func HashConcat(inputs ...[]byte) []byte {
	h := sha3.New256()
	lenBytes := make([]byte, 4)
	for _, input := range inputs {
		if len(input) > MaxHashConcatInputSize {
			panic("HashConcat: input size exceeds maximum")
		}

		l := len(input)
		lenBytes[0] = byte(l)
		lenBytes[1] = byte(l >> 8)
		lenBytes[2] = byte(l >> 16)
		lenBytes[3] = byte(l >> 24)
		h.Write(lenBytes)
		h.Write(input)
	}
	return h.Sum(nil)
}

// Fingerprint returns the hex SHA3-256 digest of a bit sequence under a
// domain tag. Bits are hashed one per byte.
func Fingerprint(domain string, bits []uint8) string {
	return hex.EncodeToString(HashWithDomain(domain, bits))
}

// DeriveState expands seed into a degree-bit register state with SHAKE256.
// The all-zero state is never returned; if the expansion happens to be all
// zero the last bit is set.
func DeriveState(seed []byte, degree int) []uint8 {
	if degree <= 0 {
		return nil
	}
	raw := Shake256(seed, (degree+7)/8)
	state := make([]uint8, degree)
	nonZero := false
	for i := range state {
		state[i] = (raw[i/8] >> uint(7-i%8)) & 1
		if state[i] != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		state[degree-1] = 1
	}
	return state
}
