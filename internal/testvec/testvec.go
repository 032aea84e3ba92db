// Package testvec holds known-answer vectors shared by the package tests.
package testvec

import (
	geffe "github.com/BackendStack21/geffe-go"
)

// ToyKeystream is 256 bits from the toy preset seeded with ToyL1, ToyL2 and
// ToyL3.
const ToyKeystream = "1010001111001101100100010011110100011000110111111011001001011000" +
	"0111000011100001100101101110101100011110111000010101000111000110" +
	"1111010110010110110011010110001110111011100110111111010000011011" +
	"1100101101101110010011000011110001111100110000000110010101111011"

// Toy register seeds.
const (
	ToyL1 = "101100101"
	ToyL2 = "0110100111"
	ToyL3 = "11001010011"
)

// Agreement of the true toy states with ToyKeystream, and their distance in
// clocks from the canonical seed.
const (
	ToyL1Agreement = 200
	ToyL1Step      = 183
	ToyL2Agreement = 195
	ToyL2Step      = 558
)

// ToyTemplateL3 is what template verification reports for the toy keystream:
// the all-zero completion truncated to the L3 degree.
const ToyTemplateL3 = "11001010000"

// Lab4 register seeds used to produce the reference keystream in
// combiner/testdata.
const (
	Lab4L1 = "0101110001110001110001001"
	Lab4L2 = "01000101011001011001011001"
	Lab4L3 = "010010000010010110100100001"
)

// Bits parses a '0'/'1' string and panics on anything else.
func Bits(s string) geffe.Sequence {
	out := make(geffe.Sequence, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
		case '1':
			out[i] = 1
		default:
			panic("testvec: bad bit " + string(s[i]))
		}
	}
	return out
}

// Toy returns ToyKeystream as a sequence.
func Toy() geffe.Sequence { return Bits(ToyKeystream) }
