package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDryRunValidatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("avatars:\n  - side: AI\n    voice_name: bot\nmoods:\n  - name: calm\n    prompt: Stay calm.\n"), 0o600))

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"apply", "--dry-run", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1 avatars, 1 moods")
}

func TestApplyRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("avatars:\n  - side: robot\n    voice_name: x\n"), 0o600))

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"apply", "--dry-run", path})

	assert.ErrorContains(t, cmd.Execute(), "side must be USER or AI")
}

func TestCommandsRequireOneArgument(t *testing.T) {
	for _, name := range []string{"apply", "promote"} {
		cmd := rootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{name})
		assert.Error(t, cmd.Execute(), name)
	}
}
