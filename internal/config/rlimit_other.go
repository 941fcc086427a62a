//go:build !linux && !darwin

package config

import "errors"

// FileDescriptorLimit is not available on this platform.
func FileDescriptorLimit() (uint64, error) {
	return 0, errors.ErrUnsupported
}
