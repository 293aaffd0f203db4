package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRoot_EndOfInputCancels(t *testing.T) {
	out, err := execute(t, "", "--no-state", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled; nothing was written.")
}

func TestRoot_InvalidFlag(t *testing.T) {
	_, err := execute(t, "", "--no-state", "--host", "999.1.1.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid host")
}

func TestRoot_EnvOverride(t *testing.T) {
	t.Setenv("DECONZ2Z2M_PORT", "0")
	_, err := execute(t, "", "--no-state")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 0")
}

func TestRoot_FlagBeatsEnv(t *testing.T) {
	t.Setenv("DECONZ2Z2M_PORT", "0")
	_, err := execute(t, "", "--no-state", "--port", "8080", "--log-level", "error")
	require.NoError(t, err)
}

func TestRoot_BadLogLevel(t *testing.T) {
	_, err := execute(t, "", "--no-state", "--log-level", "loud")
	require.Error(t, err)
}

func TestPair_RejectsArgs(t *testing.T) {
	_, err := execute(t, "", "pair", "extra")
	require.Error(t, err)
}
