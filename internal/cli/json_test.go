package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineMode_DefaultValue(t *testing.T) {
	oldMode := machineMode
	defer func() { machineMode = oldMode }()

	machineMode = false
	assert.False(t, MachineMode())

	machineMode = true
	assert.True(t, MachineMode())
}

func TestWriteJSONSuccess_BasicData(t *testing.T) {
	var buf bytes.Buffer

	err := WriteJSONSuccess(&buf, map[string]string{"key": "value"})
	require.NoError(t, err)

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))

	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	dataMap, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", dataMap["key"])
}

func TestWriteJSONSuccess_ProcessList(t *testing.T) {
	var buf bytes.Buffer

	err := WriteJSONSuccess(&buf, []provider.ProcessRecord{
		{Name: "postgres", PID: 812, MemoryMB: 256.5, CPUPercent: 3.2, Status: "sleep"},
	})
	require.NoError(t, err)

	var env struct {
		Success bool                     `json:"success"`
		Data    []provider.ProcessRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "postgres", env.Data[0].Name)
	assert.Equal(t, 256.5, env.Data[0].MemoryMB)
	assert.Contains(t, buf.String(), `"memory_mb"`)
}

func TestWriteJSONSuccess_Indented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, nil))

	assert.Contains(t, buf.String(), "\n  \"success\": true")
	assert.NotContains(t, buf.String(), `"data"`, "nil data is omitted")
}

func TestWriteJSONError_AllFields(t *testing.T) {
	var buf bytes.Buffer

	err := WriteJSONError(&buf, ErrCodeProcessNotFound, "Process 42 not found", "Check the PID", map[string]int{"pid": 42})
	require.NoError(t, err)

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))

	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeProcessNotFound, env.Error.Code)
	assert.Equal(t, "Process 42 not found", env.Error.Message)
	assert.Equal(t, "Check the PID", env.Error.Suggestion)
	assert.NotNil(t, env.Error.Details)
}

func TestWriteJSONFromError_WrappedStructuredError(t *testing.T) {
	var buf bytes.Buffer

	inner := errors.New(errors.ErrStore, "Storage is disabled", "Enable it")
	require.NoError(t, WriteJSONFromError(&buf, fmt.Errorf("history: %w", inner)))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeStoreUnavailable, env.Error.Code)
	assert.Equal(t, "Storage is disabled", env.Error.Message)
}

func TestErrorToJSON_NilReturnsNil(t *testing.T) {
	assert.Nil(t, ErrorToJSON(nil))
}

func TestErrorToJSON_GenericError(t *testing.T) {
	got := ErrorToJSON(fmt.Errorf("boom"))
	assert.Equal(t, ErrCodeUnknown, got.Code)
	assert.Equal(t, "boom", got.Message)
}

func TestErrorToJSON_Codes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "config not found",
			err:  errors.New(errors.ErrConfig, "Config file not found", ""),
			want: ErrCodeConfigNotFound,
		},
		{
			name: "config invalid",
			err:  errors.New(errors.ErrConfig, "processes.limit must not be negative", ""),
			want: ErrCodeConfigInvalid,
		},
		{
			name: "process gone",
			err:  errors.WrapWithCode(provider.ErrNoSuchProcess, errors.ErrTerminate, "Process 9 not found", ""),
			want: ErrCodeProcessNotFound,
		},
		{
			name: "permission denied",
			err:  errors.WrapWithCode(fmt.Errorf("kill: %w", provider.ErrPermission), errors.ErrTerminate, "Not allowed", ""),
			want: ErrCodePermissionDenied,
		},
		{
			name: "timeout",
			err:  errors.WrapWithCode(context.DeadlineExceeded, errors.ErrTerminate, "Timed out", ""),
			want: ErrCodeTerminateTimeout,
		},
		{
			name: "other termination failure",
			err:  errors.New(errors.ErrTerminate, "Invalid process ID 0", ""),
			want: ErrCodeTerminateFailed,
		},
		{
			name: "provider",
			err:  errors.New(errors.ErrProvider, "Couldn't list processes", ""),
			want: ErrCodeProviderFailed,
		},
		{
			name: "monitor",
			err:  errors.New(errors.ErrMonitor, "Dashboard exited with an error", ""),
			want: ErrCodeMonitorFailed,
		},
		{
			name: "unknown code",
			err:  errors.New("SOMETHING", "odd", ""),
			want: ErrCodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorToJSON(tt.err).Code)
		})
	}
}
