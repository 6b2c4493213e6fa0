package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	root := GetRootCmd()

	t.Run("should expose the expected subcommands", func(t *testing.T) {
		names := make(map[string]bool)
		for _, cmd := range root.Commands() {
			names[cmd.Name()] = true
		}

		for _, want := range []string{"ask", "serve", "sync", "transcripts"} {
			assert.True(t, names[want], "missing command %q", want)
		}
	})

	t.Run("should carry global flags", func(t *testing.T) {
		require.NotNil(t, root.PersistentFlags().Lookup("config"))
		require.NotNil(t, root.PersistentFlags().Lookup("log-level"))
	})

	t.Run("should report the version", func(t *testing.T) {
		assert.Equal(t, version, root.Version)
	})
}
