package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	pmerrors "github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/logger"
	"github.com/rileyhilliard/procmon/internal/provider"
	fakeprovider "github.com/rileyhilliard/procmon/internal/provider/testing"
	"github.com/rileyhilliard/procmon/internal/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterSeries(start time.Time, n int) []provider.Counters {
	out := make([]provider.Counters, n)
	for i := range out {
		step := uint64(i)
		out[i] = provider.Counters{
			Time:           start.Add(time.Duration(i) * time.Second),
			CPUPercent:     float64(10 + i),
			MemoryPercent:  float64(40 + i),
			MemoryUsed:     4 << 30,
			MemoryTotal:    16 << 30,
			DiskReadBytes:  100 + 50*step,
			DiskWriteBytes: 1000 + 10*step,
			NetSentBytes:   2000 + 500*step,
			NetRecvBytes:   5000 + 1000*step,
		}
	}
	return out
}

func newTestPerformanceMonitor(fake *fakeprovider.FakeProvider, history int) *PerformanceMonitor {
	return NewPerformanceMonitor(fake, PerformanceOptions{
		Interval:    10 * time.Millisecond,
		History:     history,
		Backoff:     10 * time.Millisecond,
		StopTimeout: 500 * time.Millisecond,
	}, logger.NewBufferLogger())
}

func TestNewPerformanceMonitor_Defaults(t *testing.T) {
	m := NewPerformanceMonitor(fakeprovider.NewFakeProvider(), PerformanceOptions{}, nil)
	assert.Equal(t, DefaultPerformanceInterval, m.Interval())
	assert.Equal(t, ring.DefaultCapacity, m.cpu.Cap())
	assert.Equal(t, 60, m.network.Cap())
}

func TestPerformanceMonitor_FirstSampleHasNoRates(t *testing.T) {
	fake := fakeprovider.NewFakeProvider()
	fake.Counters = counterSeries(time.Now(), 2)
	m := newTestPerformanceMonitor(fake, 60)

	s, err := m.Sample(context.Background())
	require.NoError(t, err)

	assert.False(t, s.RatesValid)
	assert.Zero(t, s.Disk)
	assert.Zero(t, s.Network)
	assert.Equal(t, 10.0, s.CPUPercent)
	assert.Equal(t, []float64{10}, s.History.CPU)
	assert.Empty(t, s.History.Disk, "no rate is recorded from a single reading")
	assert.Empty(t, s.History.Network)
}

func TestPerformanceMonitor_RatesFromCounters(t *testing.T) {
	fake := fakeprovider.NewFakeProvider()
	fake.Counters = counterSeries(time.Now(), 3)
	m := newTestPerformanceMonitor(fake, 60)

	_, err := m.Sample(context.Background())
	require.NoError(t, err)
	s, err := m.Sample(context.Background())
	require.NoError(t, err)

	require.True(t, s.RatesValid)
	assert.InDelta(t, 50.0, s.Disk.Read, 1e-9, "100 -> 150 over one second")
	assert.InDelta(t, 10.0, s.Disk.Write, 1e-9)
	assert.InDelta(t, 500.0, s.Network.Sent, 1e-9)
	assert.InDelta(t, 1000.0, s.Network.Recv, 1e-9)

	hist := m.Snapshot()
	assert.Equal(t, []float64{10, 11}, hist.CPU)
	assert.Equal(t, []float64{40, 41}, hist.Memory)
	assert.Equal(t, []DiskRate{{Read: 50, Write: 10}}, hist.Disk)
	assert.Equal(t, []NetRate{{Sent: 500, Recv: 1000}}, hist.Network)
}

func TestPerformanceMonitor_HistoryIsBounded(t *testing.T) {
	fake := fakeprovider.NewFakeProvider()
	fake.Counters = counterSeries(time.Now(), 10)
	m := newTestPerformanceMonitor(fake, 3)

	for i := 0; i < 10; i++ {
		_, err := m.Sample(context.Background())
		require.NoError(t, err)
	}

	hist := m.Snapshot()
	assert.Equal(t, []float64{17, 18, 19}, hist.CPU, "last three samples in order")
	assert.Len(t, hist.Disk, 3)
}

func TestPerformanceMonitor_SnapshotWithoutPolling(t *testing.T) {
	m := newTestPerformanceMonitor(fakeprovider.NewFakeProvider(), 5)

	hist := m.Snapshot()
	assert.Empty(t, hist.CPU)
	_, ok := m.Latest()
	assert.False(t, ok)
	assert.False(t, m.Running())
}

func TestPerformanceMonitor_SampleError(t *testing.T) {
	fake := fakeprovider.NewFakeProvider()
	fake.CountersErr = errors.New("sysctl failed")
	m := newTestPerformanceMonitor(fake, 5)

	_, err := m.Sample(context.Background())
	require.Error(t, err)
	assert.True(t, pmerrors.IsCode(err, pmerrors.ErrProvider))
	assert.Empty(t, m.Snapshot().CPU)
}

func TestPerformanceMonitor_DeliversCopies(t *testing.T) {
	fake := fakeprovider.NewFakeProvider()
	fake.Counters = counterSeries(time.Now(), 3)
	m := newTestPerformanceMonitor(fake, 60)

	var a, b []PerformanceSample
	m.Register(NewConsumer("graphs", func(s PerformanceSample) error {
		a = append(a, s)
		return nil
	}))
	m.Register(NewConsumer("status", func(s PerformanceSample) error {
		b = append(b, s)
		return nil
	}))

	require.NoError(t, m.tick(context.Background()))
	require.NoError(t, m.tick(context.Background()))
	assert.Equal(t, 4, m.Drain())

	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.False(t, a[0].RatesValid)
	assert.True(t, a[1].RatesValid)

	a[1].History.CPU[0] = -1
	assert.Equal(t, 10.0, b[1].History.CPU[0], "consumers never share history slices")
	assert.Equal(t, 10.0, m.Snapshot().CPU[0])

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, 11.0, latest.CPUPercent)
}

func TestPerformanceMonitor_RestartResetsRates(t *testing.T) {
	fake := fakeprovider.NewFakeProvider()
	fake.Counters = counterSeries(time.Now(), 100)
	m := newTestPerformanceMonitor(fake, 60)

	var samples []PerformanceSample
	m.Register(NewConsumer("collect", func(s PerformanceSample) error {
		samples = append(samples, s)
		return nil
	}))

	require.True(t, m.Start())
	require.Eventually(t, func() bool { return m.Pending() >= 2 }, eventually, pollEvery)
	require.NoError(t, m.Stop())
	m.Drain()
	require.GreaterOrEqual(t, len(samples), 2)
	assert.False(t, samples[0].RatesValid)
	assert.True(t, samples[1].RatesValid)

	samples = nil
	require.True(t, m.Start())
	assert.Equal(t, 1, m.ActiveLoops())
	require.Eventually(t, func() bool { return m.Pending() >= 1 }, eventually, pollEvery)
	require.NoError(t, m.Stop())
	m.Drain()

	require.NotEmpty(t, samples)
	assert.False(t, samples[0].RatesValid, "first sample after restart has no rate")
	assert.Equal(t, 0, m.ActiveLoops())
}

func TestPerformanceMonitor_StuckSampleAfterStopIsDropped(t *testing.T) {
	fake := fakeprovider.NewFakeProvider()
	fake.Counters = counterSeries(time.Now(), 10)
	fake.Block = make(chan struct{})
	fake.IgnoreContext = true

	m := NewPerformanceMonitor(fake, PerformanceOptions{
		Interval:    10 * time.Millisecond,
		StopTimeout: 20 * time.Millisecond,
	}, logger.NewBufferLogger())
	delivered := 0
	m.Register(NewConsumer("count", func(PerformanceSample) error {
		delivered++
		return nil
	}))

	require.True(t, m.Start())
	time.Sleep(30 * time.Millisecond)

	require.Error(t, m.Stop())
	assert.False(t, m.Start(), "restart waits for the stuck loop")
	assert.Equal(t, 1, m.ActiveLoops())

	close(fake.Block)
	require.Eventually(t, func() bool { return m.ActiveLoops() == 0 }, eventually, pollEvery)

	h := m.Snapshot()
	assert.Empty(t, h.CPU, "a reading from a stopped loop never reaches the history")
	assert.Empty(t, h.Memory)
	_, ok := m.Latest()
	assert.False(t, ok)
	assert.Zero(t, m.Drain())
	assert.Zero(t, delivered)
}
