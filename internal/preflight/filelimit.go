package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the file descriptor limit below which watching a
// large docs tree may fail.
const MinFileDescriptors = 1024

// CheckFileDescriptors checks the soft file descriptor limit. A low limit
// only affects 'docsmcp watch', which then falls back to polling.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: false,
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (recommended: %d)", rLimit.Cur, MinFileDescriptors)
	if rLimit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 10240' to increase the limit"
		return result
	}

	result.Status = StatusPass
	return result
}
