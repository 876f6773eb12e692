package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLIErrorCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{
			name:        "missing audio file arg",
			args:        []string{},
			errContains: "accepts 1 arg(s), received 0",
		},
		{
			name:        "too many args",
			args:        []string{"a.wav", "b.wav"},
			errContains: "accepts 1 arg(s), received 2",
		},
		{
			name:        "unknown root flag",
			args:        []string{"--badflag", "a.wav"},
			errContains: "unknown flag",
		},
		{
			name:        "unknown subcommand flag",
			args:        []string{"cuda-paths", "--bogus"},
			errContains: "unknown flag",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stdout, _, err := runCommand(t, tt.args)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errContains)
			require.Empty(t, stdout)
		})
	}
}

func TestVersionFlagOutput(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCommand(t, []string{"--version"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout, "ukscribe v"), "expected version prefix, got: %s", stdout)
}

func TestVersionSubcommandOutput(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCommand(t, []string{"version"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout, "ukscribe v"), "expected version prefix, got: %s", stdout)
}
