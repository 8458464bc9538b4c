package cli

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveVersion restores the build info and machine mode after a test.
func saveVersion(t *testing.T) {
	t.Helper()
	v, c, d, mm := version, commit, date, machineMode
	t.Cleanup(func() {
		version, commit, date, machineMode = v, c, d, mm
	})
}

func TestVersionOutput(t *testing.T) {
	saveVersion(t)
	version = "1.2.3"
	commit = "abc1234"
	date = "2026-01-08T12:00:00Z"

	var buf bytes.Buffer
	require.NoError(t, writeVersion(&buf, false))

	output := buf.String()
	assert.Contains(t, output, "procmon v1.2.3", "should show version with v prefix")
	assert.Contains(t, output, "commit: abc1234")
	assert.Contains(t, output, "built: 2026-01-08T12:00:00Z")
	assert.Contains(t, output, "go: "+runtime.Version())
	assert.Contains(t, output, "os/arch: "+runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionOutputShort(t *testing.T) {
	saveVersion(t)
	version = "1.2.3"

	var buf bytes.Buffer
	require.NoError(t, writeVersion(&buf, true))
	assert.Equal(t, "1.2.3", strings.TrimSpace(buf.String()), "short output should only show version")
}

func TestVersionOutputDev(t *testing.T) {
	saveVersion(t)
	version = "dev"

	var buf bytes.Buffer
	require.NoError(t, writeVersion(&buf, false))
	assert.Contains(t, buf.String(), "procmon dev", "dev version should not have v prefix")
}

func TestVersionOutputJSON(t *testing.T) {
	saveVersion(t)
	version = "1.2.3"
	commit = "abc1234"
	machineMode = true

	var buf bytes.Buffer
	require.NoError(t, writeVersion(&buf, false))

	var env struct {
		Success bool        `json:"success"`
		Data    versionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "1.2.3", env.Data.Version)
	assert.Equal(t, "abc1234", env.Data.Commit)
	assert.Equal(t, runtime.GOOS, env.Data.OS)
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty string", input: "", want: ""},
		{name: "dev version", input: "dev", want: "dev"},
		{name: "version without prefix", input: "1.2.3", want: "v1.2.3"},
		{name: "version with prefix", input: "v1.2.3", want: "v1.2.3"},
		{name: "version with prerelease", input: "1.2.3-beta.1", want: "v1.2.3-beta.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVersion(tt.input))
		})
	}
}

func TestVersionCommandHasShortFlag(t *testing.T) {
	flag := versionCmd.Flags().Lookup("short")
	require.NotNil(t, flag, "version command should have --short flag")
	assert.Equal(t, "bool", flag.Value.Type())
	assert.Equal(t, "false", flag.DefValue)
}

func TestSetVersionInfo(t *testing.T) {
	saveVersion(t)
	oldRootVersion := rootCmd.Version
	defer func() { rootCmd.Version = oldRootVersion }()

	SetVersionInfo("2.0.0", "def5678", "2026-06-15T10:00:00Z")

	assert.Equal(t, "2.0.0", version)
	assert.Equal(t, "def5678", commit)
	assert.Equal(t, "2026-06-15T10:00:00Z", date)
	assert.Equal(t, "v2.0.0", rootCmd.Version)
	assert.Equal(t, "2.0.0", GetVersion())
}
