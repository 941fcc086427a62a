//go:build linux || darwin

package config

import "golang.org/x/sys/unix"

// FileDescriptorLimit returns the soft RLIMIT_NOFILE of the process.
func FileDescriptorLimit() (uint64, error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, err
	}
	return rl.Cur, nil
}
