package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrProvider,
		ErrTerminate,
		ErrStore,
		ErrMonitor,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Invalid configuration in config.yaml",
			suggestion: "Check your configuration file syntax",
		},
		{
			name:       "terminate error",
			code:       ErrTerminate,
			message:    "Process 4242 not found",
			suggestion: "Refresh the process list and try again",
		},
		{
			name:       "store error",
			code:       ErrStore,
			message:    "Database is locked",
			suggestion: "Close other procmon instances",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
		notExpected   []string
	}{
		{
			name:          "basic error formatting",
			err:           New(ErrConfig, "Invalid configuration", "Check config.yaml syntax"),
			expectedParts: []string{"✗", "Invalid configuration", "Check config.yaml syntax"},
		},
		{
			name:          "error without suggestion",
			err:           New(ErrTerminate, "Kill failed", ""),
			expectedParts: []string{"Kill failed"},
			notExpected:   []string{"\n\n  \n"},
		},
		{
			name:          "error with cause",
			err:           WrapWithCode(errors.New("permission denied"), ErrTerminate, "Can't stop 12", "Retry elevated"),
			expectedParts: []string{"Can't stop 12", "permission denied", "Retry elevated"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.err.Error()

			for _, part := range tt.expectedParts {
				assert.Contains(t, output, part)
			}
			for _, part := range tt.notExpected {
				assert.NotContains(t, output, part)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("read /proc failed")
	wrapped := Wrap(cause, "Couldn't list processes")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrProvider, wrapped.Code, "Wrap should default to ErrProvider code")
	assert.Equal(t, "Couldn't list processes", wrapped.Message)
	assert.Equal(t, cause, wrapped.Cause)
}

func TestErrorsIsAndAs(t *testing.T) {
	cause := errors.New("specific error")
	wrapped := WrapWithCode(cause, ErrStore, "Store error", "")

	assert.True(t, errors.Is(wrapped, cause))
	assert.True(t, Is(wrapped, cause))
	assert.Equal(t, cause, wrapped.Unwrap())

	var pmErr *Error
	require.True(t, As(wrapped, &pmErr))
	assert.Equal(t, ErrStore, pmErr.Code)
}

func TestIsCode(t *testing.T) {
	err := New(ErrConfig, "Config error", "")

	assert.True(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(err, ErrTerminate))
	assert.False(t, IsCode(errors.New("standard error"), ErrConfig))
	assert.False(t, IsCode(nil, ErrConfig))
}

func TestErrorMessageStructure(t *testing.T) {
	err := WrapWithCode(
		errors.New("operation not permitted"),
		ErrTerminate,
		"Not allowed to stop process 1",
		"Retry with elevated privileges",
	)

	lines := strings.Split(err.Error(), "\n")

	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "✗"), "First line should start with failure symbol")
	assert.Contains(t, lines[0], "Not allowed to stop process 1")
}
