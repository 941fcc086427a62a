package config

import "runtime"

// Concurrency resolution chain (highest priority first):
//   1. CLI flags (--max-in-flight, -j)
//   2. Environment variable TILEMANIFEST_MAX_IN_FLIGHT
//   3. Configuration file (max_in_flight)
//   4. Adaptive estimation (this file)

const (
	// remoteMaxInFlight is the adaptive cap for a remote exists service.
	remoteMaxInFlight = 16
	// localPerCPU is how many local stat probes run per CPU.
	localPerCPU = 4
	// fdReserve is kept free for the process itself when the descriptor
	// limit caps concurrency.
	fdReserve = 32
)

// ApplyAdaptiveDefaults fills MaxInFlight when it was left at zero. The
// estimate depends on whether probes go to a remote service and on the
// soft file descriptor limit of the process.
func ApplyAdaptiveDefaults(cfg AppConfig) AppConfig {
	if cfg.MaxInFlight == 0 {
		limit, _ := FileDescriptorLimit()
		cfg.MaxInFlight = EstimateMaxInFlight(cfg.ProbeURL != "", limit)
	}
	return cfg
}

// EstimateMaxInFlight provides a heuristic concurrency estimate without
// measuring the probe target. fdLimit is the soft descriptor limit, or 0
// when unknown.
func EstimateMaxInFlight(remote bool, fdLimit uint64) int {
	n := remoteMaxInFlight
	if !remote {
		n = max(runtime.NumCPU()*localPerCPU, 4)
	}
	if fdLimit > 0 {
		usable := int(min(fdLimit, 1<<20)) - fdReserve
		if usable < 1 {
			usable = 1
		}
		n = min(n, usable)
	}
	return n
}

// ExceedsDescriptorLimit reports whether maxInFlight concurrent probes are
// likely to run out of file descriptors. It is false when the limit is
// unknown.
func ExceedsDescriptorLimit(maxInFlight int) (bool, uint64) {
	limit, err := FileDescriptorLimit()
	if err != nil || limit == 0 {
		return false, 0
	}
	return uint64(maxInFlight)+fdReserve > limit, limit
}
