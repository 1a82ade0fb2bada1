package envinfo

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot describes the machine a batch ran on. It is embedded in batch
// reports so results from different hosts stay comparable.
type Snapshot struct {
	Hostname      string    `json:"hostname,omitempty"`
	OS            string    `json:"os"`
	Platform      string    `json:"platform,omitempty"`
	KernelVersion string    `json:"kernel_version,omitempty"`
	Arch          string    `json:"arch"`
	CPUModel      string    `json:"cpu_model,omitempty"`
	PhysicalCores int       `json:"physical_cores,omitempty"`
	LogicalCores  int       `json:"logical_cores,omitempty"`
	TotalMemory   uint64    `json:"total_memory_bytes,omitempty"`
	CapturedAt    time.Time `json:"captured_at"`
}

// Collect gathers a best-effort snapshot. Probes that fail leave their fields
// zero rather than failing the report.
func Collect() Snapshot {
	snap := Snapshot{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		CapturedAt: time.Now().UTC(),
	}

	if info, err := host.Info(); err == nil {
		snap.Hostname = info.Hostname
		snap.Platform = info.Platform
		snap.KernelVersion = info.KernelVersion
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		snap.CPUModel = infos[0].ModelName
	}
	if physical, err := cpu.Counts(false); err == nil {
		snap.PhysicalCores = physical
	}
	if logical, err := cpu.Counts(true); err == nil {
		snap.LogicalCores = logical
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.TotalMemory = vm.Total
	}
	return snap
}
