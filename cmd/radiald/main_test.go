package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "RadialCore/internal/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateAcceptsExampleManifest(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join("..", "..", "examples", "plugins", "greeter", "plugin.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "example.greeter v0.2.0")
}

func TestValidateTOMLManifest(t *testing.T) {
	path := writeFile(t, "plugin.toml", `
id = "example.toml"
name = "Toml"
version = "1.2.0"
required_core = "1.0.0"
`)
	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "example.toml v1.2.0")
}

func TestValidateRejectsIncompatibleCore(t *testing.T) {
	path := writeFile(t, "plugin.yaml", "id: future\nname: Future\nversion: 1.0.0\nrequiredCore: 2.0.0\n")
	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeIncompatibleVersion, xerrors.CodeOf(err))
}

func TestValidateRejectsBrokenManifest(t *testing.T) {
	path := writeFile(t, "plugin.yaml", "id: broken\nversion: one\n")
	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	_, err = execute(t, "validate")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "radiald dev")
	assert.Contains(t, out, "core 1.0.0")
}
