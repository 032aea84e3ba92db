// Package keystream reads and writes keystreams as text: a single run of
// '0' and '1' characters with no separators.
package keystream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/utils"
)

// DomainKeystream tags keystream fingerprints.
const DomainKeystream = "geffe-keystream-v1"

// ErrEmpty is returned for input with no bits.
var ErrEmpty = errors.New("keystream is empty")

// Parse converts text to bits. Leading and trailing whitespace is ignored;
// any other character is an error naming its offset.
func Parse(text string) (geffe.Sequence, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmpty
	}
	bits, err := utils.SafeMakeBits(len(text), utils.MaxKeystreamLength)
	if err != nil {
		return nil, fmt.Errorf("keystream of %d characters: %w", len(text), err)
	}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '0':
			bits[i] = 0
		case '1':
			bits[i] = 1
		default:
			return nil, fmt.Errorf("keystream: invalid character %q at offset %d", text[i], i)
		}
	}
	return bits, nil
}

// Read parses a keystream from r.
func Read(r io.Reader) (geffe.Sequence, error) {
	data, err := io.ReadAll(io.LimitReader(r, utils.MaxKeystreamLength+4096))
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Load parses the keystream stored in a file.
func Load(path string) (geffe.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Write stores bits as text followed by a newline.
func Write(w io.Writer, bits geffe.Sequence) error {
	_, err := io.WriteString(w, bits.String()+"\n")
	return err
}

// Fingerprint identifies a keystream without revealing it in logs.
func Fingerprint(bits geffe.Sequence) string {
	return utils.Fingerprint(DomainKeystream, bits)
}
