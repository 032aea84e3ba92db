package keystream

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	bits, err := Parse(" 0110\n")
	require.NoError(t, err)
	assert.Equal(t, "0110", bits.String())

	_, err = Parse("01a1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 2")

	_, err = Parse("01 10")
	assert.Error(t, err, "interior whitespace is not a separator")

	_, err = Parse("  \n")
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestLoadAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text.txt")
	require.NoError(t, os.WriteFile(path, []byte("1011001\n"), 0600))

	bits, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, bits, 7)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, bits))
	assert.Equal(t, "1011001\n", buf.String())

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	bits, err := Read(strings.NewReader(strings.Repeat("10", 500)))
	require.NoError(t, err)
	assert.Len(t, bits, 1000)
}

func TestFingerprint(t *testing.T) {
	a, _ := Parse("0101")
	b, _ := Parse("0100")
	assert.Len(t, Fingerprint(a), 64)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func FuzzParse(f *testing.F) {
	f.Add("")
	f.Add("0101")
	f.Add(" 1\n")
	f.Add("10x")
	f.Fuzz(func(t *testing.T, text string) {
		bits, err := Parse(text)
		if err != nil {
			return
		}
		if bits.String() != strings.TrimSpace(text) {
			t.Fatalf("Parse(%q) round trip mismatch", text)
		}
	})
}
