package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmazer/wayfarer"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "wayfarer version "+wayfarer.Version+"\n", out)
}

func TestPlanCommand_InvalidLogLevel(t *testing.T) {
	t.Setenv("WAYFARER_CONFIG", "")
	_, err := execute(t, "plan", "--log-level", "loud", "weekend in Goa")
	assert.ErrorContains(t, err, "log.level")
}

func TestToolCommand_RequiresName(t *testing.T) {
	_, err := execute(t, "tool")
	assert.Error(t, err)
}
