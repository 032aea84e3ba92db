package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/internal/testvec"
)

// run executes the CLI in-process and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeToyKeystream(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toy.txt")
	require.NoError(t, os.WriteFile(path, []byte(testvec.ToyKeystream+"\n"), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, appName+" version "+version)
	assert.Contains(t, out, geffe.Version)
}

func TestConfig(t *testing.T) {
	out, _, err := run(t, "config", "-p", "toy")
	require.NoError(t, err)
	assert.Contains(t, out, "degree: 9")
	assert.Contains(t, out, "verification: register")

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 3\nprefix_length: 64\n"), 0o600))
	out, _, err = run(t, "config", "-p", "toy", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "workers: 3")
	assert.Contains(t, out, "prefix_length: 64")

	_, _, err = run(t, "config", "-p", "nope")
	assert.ErrorIs(t, err, geffe.ErrInvalidConfiguration)
}

func TestGenerate(t *testing.T) {
	out, _, err := run(t, "generate", "-p", "toy",
		"--l1", testvec.ToyL1, "--l2", testvec.ToyL2, "--l3", testvec.ToyL3, "-n", "256")
	require.NoError(t, err)
	assert.Equal(t, testvec.ToyKeystream+"\n", out)

	path := filepath.Join(t.TempDir(), "z.txt")
	_, _, err = run(t, "generate", "-p", "toy",
		"--l1", testvec.ToyL1, "--l2", testvec.ToyL2, "--l3", testvec.ToyL3, "-n", "256", "--out", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testvec.ToyKeystream, strings.TrimSpace(string(data)))

	_, _, err = run(t, "generate", "-p", "toy", "--l1", "10x", "--l2", testvec.ToyL2, "--l3", testvec.ToyL3)
	assert.Error(t, err)
}

func TestAttack_Text(t *testing.T) {
	path := writeToyKeystream(t)
	out, _, err := run(t, "attack", "-p", "toy", "-k", path)
	require.NoError(t, err)
	assert.Equal(t, "L1: "+testvec.ToyL1+"\nL2: "+testvec.ToyL2+"\nL3: "+testvec.ToyL3+"\n", out)
}

func TestAttack_JSON(t *testing.T) {
	path := writeToyKeystream(t)
	out, _, err := run(t, "attack", "-p", "toy", "-k", path, "-o", "json", "--auto-threshold", "-w", "2")
	require.NoError(t, err)

	var rec geffe.Recovery
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, testvec.ToyL3, rec.L3.String())
	assert.True(t, rec.SelectorConsistent)
	assert.NotEmpty(t, rec.RunID)
}

func TestAttack_TemplateWarning(t *testing.T) {
	path := writeToyKeystream(t)
	out, _, err := run(t, "attack", "-p", "toy", "-k", path, "--verification", "template")
	require.NoError(t, err)
	assert.Contains(t, out, "L3: "+testvec.ToyTemplateL3)
	assert.Contains(t, out, "warning: L3 does not regenerate")
}

func TestAttack_Cache(t *testing.T) {
	path := writeToyKeystream(t)
	cache := filepath.Join(t.TempDir(), "cache")
	for i := 0; i < 2; i++ {
		out, stderr, err := run(t, "attack", "-p", "toy", "-k", path, "--cache", cache,
			"--log-level", "info", "--log-format", "json")
		require.NoError(t, err)
		assert.Contains(t, out, "L3: "+testvec.ToyL3)
		if i == 1 {
			assert.Contains(t, stderr, "correlation candidates loaded from cache")
		}
	}
}

func TestAttack_Errors(t *testing.T) {
	_, _, err := run(t, "attack", "-p", "toy")
	assert.Error(t, err, "missing --keystream")

	_, _, err = run(t, "attack", "-p", "toy", "-k", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	path := writeToyKeystream(t)
	_, _, err = run(t, "attack", "-p", "toy", "-k", path, "-o", "xml")
	assert.Error(t, err)

	_, _, err = run(t, "attack", "-p", "toy", "-k", path, "--log-level", "loud")
	assert.Error(t, err)

	_, _, err = run(t, "attack", "-p", "toy", "-k", path, "--log-format", "yaml")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	path := writeToyKeystream(t)
	out, _, err := run(t, "verify", "-p", "toy", "-k", path,
		"--l1", testvec.ToyL1, "--l2", testvec.ToyL2, "--l3", testvec.ToyL3)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 256 bits match")

	out, _, err = run(t, "verify", "-p", "toy", "-k", path,
		"--l1", testvec.ToyL1, "--l2", testvec.ToyL2, "--l3", testvec.ToyTemplateL3)
	assert.Error(t, err)
	assert.Contains(t, out, "MISMATCH")
}

func TestThreshold(t *testing.T) {
	out, _, err := run(t, "threshold", "-n", "400")
	require.NoError(t, err)
	assert.Contains(t, out, "threshold: 273")
	assert.Contains(t, out, "L1: expected false candidates")

	_, _, err = run(t, "threshold", "-n", "0")
	assert.Error(t, err)
}
