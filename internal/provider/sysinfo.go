package provider

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

const infoKey = "local"

// SystemInfo implements InfoSource. Results are cached for the provider's
// info TTL; Uptime is recomputed from BootTime on every call.
func (g *Gopsutil) SystemInfo(ctx context.Context) (SystemInfo, error) {
	if item := g.info.Get(infoKey); item != nil {
		info := item.Value()
		info.Uptime = uptimeSince(info.BootTime)
		return info, nil
	}

	info, err := g.collectSystemInfo(ctx)
	if err != nil {
		return SystemInfo{}, err
	}
	g.info.Set(infoKey, info, ttlcache.DefaultTTL)
	return info, nil
}

// InvalidateSystemInfo drops the cached system info.
func (g *Gopsutil) InvalidateSystemInfo() {
	g.info.Delete(infoKey)
}

func (g *Gopsutil) collectSystemInfo(ctx context.Context) (SystemInfo, error) {
	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		return SystemInfo{}, fmt.Errorf("host info: %w", err)
	}

	info := SystemInfo{
		Hostname:    hi.Hostname,
		OS:          hi.OS,
		Platform:    hi.Platform,
		PlatformVer: hi.PlatformVersion,
		Kernel:      hi.KernelVersion,
		Arch:        hi.KernelArch,
		BootTime:    time.Unix(int64(hi.BootTime), 0),
		CollectedAt: time.Now(),
	}
	if info.Arch == "" {
		info.Arch = runtime.GOARCH
	}
	info.Uptime = uptimeSince(info.BootTime)

	// Everything below is best effort: a host without swap or with
	// unreadable partitions still gets a useful summary.
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPU.Model = cpus[0].ModelName
		info.CPU.MHz = cpus[0].Mhz
	} else if err != nil {
		g.log.Debug("cpu info unavailable: %v", err)
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.CPU.PhysicalCore = n
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPU.LogicalCore = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
	}
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		info.SwapTotal = sw.Total
	}

	info.Disks = g.collectDisks(ctx)
	info.Interfaces = g.collectInterfaces(ctx)
	return info, nil
}

func (g *Gopsutil) collectDisks(ctx context.Context) []DiskInfo {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		g.log.Debug("disk partitions unavailable: %v", err)
		return nil
	}

	disks := make([]DiskInfo, 0, len(parts))
	for _, p := range parts {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		disks = append(disks, DiskInfo{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			FSType:     p.Fstype,
			Total:      usage.Total,
			Used:       usage.Used,
			Free:       usage.Free,
			UsedPct:    usage.UsedPercent,
		})
	}
	sort.Slice(disks, func(i, j int) bool { return disks[i].Mountpoint < disks[j].Mountpoint })
	return disks
}

func (g *Gopsutil) collectInterfaces(ctx context.Context) []InterfaceInfo {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		g.log.Debug("network interfaces unavailable: %v", err)
		return nil
	}

	out := make([]InterfaceInfo, 0, len(ifaces))
	for _, iface := range ifaces {
		ii := InterfaceInfo{Name: iface.Name, MAC: iface.HardwareAddr}
		for _, flag := range iface.Flags {
			if flag == "up" {
				ii.Up = true
			}
		}
		for _, addr := range iface.Addrs {
			ii.Addresses = append(ii.Addresses, addr.Addr)
		}
		out = append(out, ii)
	}
	return out
}

func uptimeSince(boot time.Time) time.Duration {
	if boot.IsZero() || boot.Unix() == 0 {
		return 0
	}
	return time.Since(boot).Truncate(time.Second)
}
