package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Version(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	root := newRootCommand()
	root.SetArgs([]string{"version"})
	root.SetOut(&out)

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "revertfang ")
	assert.Contains(t, out.String(), "commit:")
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	names := make(map[string]bool)
	for _, cmd := range newRootCommand().Commands() {
		names[cmd.Name()] = true
	}

	assert.True(t, names["analyze"])
	assert.True(t, names["validate"])
	assert.True(t, names["version"])
}
