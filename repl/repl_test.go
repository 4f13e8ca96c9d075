package repl

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runReplWithString(t *testing.T, input string) string {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		defer inW.Close() //nolint:errcheck // test cleanup
		_, _ = io.WriteString(inW, input)
	}()

	go func() {
		Run("lumen> ", WithStdin(inR), WithStdout(outW), WithStderr(outW))
		inR.Close()  //nolint:errcheck // test cleanup
		outW.Close() //nolint:errcheck // test cleanup
	}()

	var output bytes.Buffer
	_, _ = io.Copy(&output, outR)
	outR.Close() //nolint:errcheck // test cleanup

	return output.String()
}

func TestEnsureHistoryFilePermissionsCreatesWithRestrictedMode(t *testing.T) {
	dir := t.TempDir()
	histFile := filepath.Join(dir, ".lumen_history")

	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err, "history file should be created")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestEnsureHistoryFilePermissionsRestrictsExistingFile(t *testing.T) {
	dir := t.TempDir()
	histFile := filepath.Join(dir, ".lumen_history")
	require.NoError(t, os.WriteFile(histFile, []byte("(+ 1 1)\n"), 0644))

	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(histFile)
	require.NoError(t, err)
	assert.Equal(t, "(+ 1 1)\n", string(data))
}

func TestEnsureHistoryFilePermissionsEmptyPathNoOp(t *testing.T) {
	ensureHistoryFilePermissions("")
}

func TestRun(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple addition", input: "(+ 1 1)\n", expected: "2\n"},
		{name: "unbound symbol", input: "fnord\n", expected: "unbound symbol"},
		{name: "multi-line form", input: "(+ 1\n   2)\n", expected: "3\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := runReplWithString(t, tc.input)
			assert.Contains(t, got, tc.expected)
		})
	}
}

func TestParenDelta(t *testing.T) {
	assert.Equal(t, 1, parenDelta([]byte("(+ 1 2")))
	assert.Equal(t, 0, parenDelta([]byte("(+ 1 2)")))
	assert.Equal(t, 0, parenDelta([]byte(`"(not a paren)"`)))
	assert.Equal(t, 0, parenDelta([]byte("(foo) ; (trailing comment")))
}
