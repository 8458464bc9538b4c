package cli

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rileyhilliard/procmon/internal/config"
	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/monitor"
	"github.com/rileyhilliard/procmon/internal/provider"
	fakeprovider "github.com/rileyhilliard/procmon/internal/provider/testing"
	"github.com/rileyhilliard/procmon/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPrompt replaces the terminal check and confirmation prompt.
func stubPrompt(t *testing.T, tty bool, answer bool) *int {
	t.Helper()
	oldTTY, oldConfirm, oldMode := stdinIsTerminal, confirmTerminate, machineMode
	t.Cleanup(func() {
		stdinIsTerminal, confirmTerminate, machineMode = oldTTY, oldConfirm, oldMode
	})
	machineMode = false

	asked := 0
	stdinIsTerminal = func() bool { return tty }
	confirmTerminate = func(provider.ProcessRecord) (bool, error) {
		asked++
		return answer, nil
	}
	return &asked
}

func newKillFixture(allowElevated bool) (*fakeprovider.FakeProvider, *monitor.ProcessMonitor, *[]monitor.Termination) {
	fake := fakeprovider.NewFakeProvider(
		provider.ProcessRecord{Name: "firefox", PID: 20, MemoryMB: 512},
		provider.ProcessRecord{Name: "sshd", PID: 1, MemoryMB: 8},
	)
	var recorded []monitor.Termination
	pm := monitor.NewProcessMonitor(fake, monitor.ProcessOptions{
		AllowElevated: allowElevated,
		TerminatedBy:  "user",
		Recorder: monitor.RecorderFunc(func(_ context.Context, term monitor.Termination) error {
			recorded = append(recorded, term)
			return nil
		}),
	}, nil)
	return fake, pm, &recorded
}

func TestKillProcess_ConfirmedOnTerminal(t *testing.T) {
	asked := stubPrompt(t, true, true)
	fake, pm, recorded := newKillFixture(false)

	var out bytes.Buffer
	err := killProcess(context.Background(), &out, pm, 20, killOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, *asked)
	assert.Equal(t, []fakeprovider.KillCall{{PID: 20}}, fake.Kills())
	assert.Contains(t, stripANSI(out.String()), "Terminated firefox (pid 20)")
	require.Len(t, *recorded, 1)
	assert.Equal(t, "firefox", (*recorded)[0].Process.Name)
}

func TestKillProcess_Declined(t *testing.T) {
	stubPrompt(t, true, false)
	fake, pm, recorded := newKillFixture(false)

	var out bytes.Buffer
	require.NoError(t, killProcess(context.Background(), &out, pm, 20, killOptions{}))

	assert.Empty(t, fake.Kills())
	assert.Empty(t, *recorded)
	assert.Contains(t, out.String(), "Cancelled.")
}

func TestKillProcess_NoTerminalNeedsYes(t *testing.T) {
	asked := stubPrompt(t, false, true)
	fake, pm, _ := newKillFixture(false)

	err := killProcess(context.Background(), &bytes.Buffer{}, pm, 20, killOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without confirmation")
	assert.Contains(t, err.Error(), "--yes")
	assert.Zero(t, *asked)
	assert.Empty(t, fake.Kills())

	require.NoError(t, killProcess(context.Background(), &bytes.Buffer{}, pm, 20, killOptions{Yes: true}))
	assert.Len(t, fake.Kills(), 1)
	assert.Zero(t, *asked)
}

func TestKillProcess_UnknownPID(t *testing.T) {
	stubPrompt(t, true, true)
	fake, pm, _ := newKillFixture(false)

	err := killProcess(context.Background(), &bytes.Buffer{}, pm, 999, killOptions{Yes: true})
	require.Error(t, err)
	assert.True(t, monitor.IsNotFound(err))
	assert.Equal(t, ErrCodeProcessNotFound, ErrorToJSON(err).Code)
	assert.Empty(t, fake.Kills())
}

func TestKillProcess_Failures(t *testing.T) {
	tests := []struct {
		name          string
		killErr       error
		elevatedErr   error
		allowElevated bool
		escalate      bool
		wantCalls     []fakeprovider.KillCall
		wantErr       bool
		check         func(t *testing.T, err error)
		wantOutput    string
	}{
		{
			name:      "permission denied without escalate",
			killErr:   provider.ErrPermission,
			wantCalls: []fakeprovider.KillCall{{PID: 20}},
			wantErr:   true,
			check: func(t *testing.T, err error) {
				assert.True(t, monitor.IsPermissionDenied(err))
			},
		},
		{
			name:          "permission denied then escalated",
			killErr:       provider.ErrPermission,
			allowElevated: true,
			escalate:      true,
			wantCalls:     []fakeprovider.KillCall{{PID: 20}, {PID: 20, Elevated: true}},
			wantOutput:    "with elevated privileges",
		},
		{
			name:          "escalation refused too",
			killErr:       provider.ErrPermission,
			elevatedErr:   provider.ErrPermission,
			allowElevated: true,
			escalate:      true,
			wantCalls:     []fakeprovider.KillCall{{PID: 20}, {PID: 20, Elevated: true}},
			wantErr:       true,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "Elevation failed too")
			},
		},
		{
			name:      "escalate does not apply to missing process",
			killErr:   provider.ErrNoSuchProcess,
			escalate:  true,
			wantCalls: []fakeprovider.KillCall{{PID: 20}},
			wantErr:   true,
			check: func(t *testing.T, err error) {
				assert.True(t, monitor.IsNotFound(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubPrompt(t, true, true)
			fake, pm, recorded := newKillFixture(tt.allowElevated)
			fake.KillErrs = map[int32]error{20: tt.killErr}
			fake.KillElevatedErrs = map[int32]error{20: tt.elevatedErr}

			var out bytes.Buffer
			err := killProcess(context.Background(), &out, pm, 20, killOptions{Yes: true, Escalate: tt.escalate})

			assert.Equal(t, tt.wantCalls, fake.Kills())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrTerminate))
				tt.check(t, err)
				assert.Empty(t, *recorded)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tt.wantOutput)
			require.Len(t, *recorded, 1)
			assert.True(t, (*recorded)[0].Elevated)
		})
	}
}

func TestKillProcess_JSON(t *testing.T) {
	stubPrompt(t, false, false)
	machineMode = true
	_, pm, _ := newKillFixture(false)

	var out bytes.Buffer
	require.NoError(t, killProcess(context.Background(), &out, pm, 20, killOptions{Yes: true}))

	var env struct {
		Success bool       `json:"success"`
		Data    killResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, killResult{PID: 20, Name: "firefox", MemoryMB: 512}, env.Data)
}

func TestKillProcess_JSONNeverPrompts(t *testing.T) {
	asked := stubPrompt(t, true, true)
	machineMode = true
	fake, pm, _ := newKillFixture(false)

	err := killProcess(context.Background(), &bytes.Buffer{}, pm, 20, killOptions{})
	require.Error(t, err)
	assert.Zero(t, *asked)
	assert.Empty(t, fake.Kills())
}

func TestKillCommand_TerminatesWhileDatabaseIsLocked(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}
	sleepPath, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}

	cfg := testConfig(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.Write(cfgPath, cfg, false))

	holder, err := store.Open(cfg.Storage.Path, store.Options{})
	require.NoError(t, err)
	defer holder.Close()

	oldConfig, oldYes, oldEscalate := configFlag, killYesFlag, killEscalateFlag
	t.Cleanup(func() { configFlag, killYesFlag, killEscalateFlag = oldConfig, oldYes, oldEscalate })
	configFlag, killYesFlag, killEscalateFlag = cfgPath, true, false
	stubPrompt(t, false, false)

	victim := exec.Command(sleepPath, "30")
	require.NoError(t, victim.Start())
	exited := make(chan struct{})
	go func() {
		_ = victim.Wait()
		close(exited)
	}()
	t.Cleanup(func() { _ = victim.Process.Kill() })

	var out, errOut bytes.Buffer
	err = killCommand(context.Background(), &out, &errOut, int32(victim.Process.Pid))
	require.NoError(t, err)

	assert.Contains(t, stripANSI(out.String()), "Terminated")
	assert.Contains(t, errOut.String(), "will not be recorded")
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("process is still running")
	}
}
