package dshot

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Output is read only after command returns, so keep it under a pipe buffer full.
func AssertOutputContains(t *testing.T, command func(), expectedOutputContains ...string) {
	t.Helper()

	var oldStdout = os.Stdout
	defer func() {
		os.Stdout = oldStdout
	}()

	var r, w, _ = os.Pipe()
	os.Stdout = w

	command()

	w.Close() //nolint:gosec

	os.Stdout = oldStdout

	var outputBytes, readErr = io.ReadAll(r)

	require.NoError(t, readErr)

	var outputString = string(outputBytes)

	for _, expected := range expectedOutputContains {
		assert.Contains(t, outputString, expected)
	}
}
