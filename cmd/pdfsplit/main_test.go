package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSplitRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain notes"), 0o644))

	_, err := run("split", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a pdf")
}

func TestSplitRejectsBadLimit(t *testing.T) {
	_, err := run("split", "whatever.pdf", "--max-bytes", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--max-bytes")
}

func TestCommandsRequireOneFile(t *testing.T) {
	_, err := run("split")
	assert.Error(t, err)

	_, err = run("inspect", "a.pdf", "b.pdf")
	assert.Error(t, err)
}

func TestInspectMissingFile(t *testing.T) {
	_, err := run("inspect", filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
