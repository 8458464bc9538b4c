// Package monitor moves metrics from background pollers to the UI goroutine.
//
// Each monitor owns one Poller goroutine, a Registry of consumers and a
// CallbackQueue. On every tick the poller asks the provider for data,
// updates the monitor's snapshot and queues one copy of the result per
// registered consumer. Consumers are never called from the poller: the UI
// goroutine calls Drain once per frame and the queued callbacks run there.
//
//	ProcessMonitor      process list, top N by memory, every 2s
//	PerformanceMonitor  CPU, memory, disk and network rates, every 1s
//
// Unregistering a consumer drops anything already queued for it, so an
// unregistered consumer never sees another call.
package monitor
