// Package sysmon samples host and process resource usage for the dashboard.
// Probing many tiles at once is bound by CPU on local disks and by open
// descriptors on remote ones, so both are reported.
package sysmon

import (
	"os"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Stats holds a single snapshot of resource usage.
type Stats struct {
	CPUPercent float64 // system-wide, 0.0 .. 100.0
	MemPercent float64 // system-wide, 0.0 .. 100.0
	// OpenFiles is the number of descriptors held by this process, or -1
	// when the platform cannot report it.
	OpenFiles int
}

// Sampler takes successive snapshots. CPU usage is the delta since the
// previous call, so the first sample reports zero CPU.
type Sampler struct {
	proc *process.Process
}

// NewSampler prepares a sampler for the current process.
func NewSampler() *Sampler {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		p = nil
	}
	return &Sampler{proc: p}
}

// Sample collects one snapshot. Fields that cannot be read keep their zero
// value, except OpenFiles which is -1.
func (s *Sampler) Sample() Stats {
	st := Stats{OpenFiles: -1}
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		st.CPUPercent = pcts[0]
	}
	if vmem, err := mem.VirtualMemory(); err == nil && vmem != nil {
		st.MemPercent = vmem.UsedPercent
	}
	if s != nil && s.proc != nil {
		if n, err := s.proc.NumFDs(); err == nil {
			st.OpenFiles = int(n)
		}
	}
	return st
}
