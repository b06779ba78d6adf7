package preflight

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	inotifyWatchesPath   = "/proc/sys/fs/inotify/max_user_watches"
	inotifyInstancesPath = "/proc/sys/fs/inotify/max_user_instances"

	// MinInotifyWatches is the max_user_watches value below which
	// large watch sets start hitting ENOSPC.
	MinInotifyWatches = 8192

	// MinInotifyInstances bounds how many watchers can coexist per
	// user. Each FileSentry process uses one instance per watched
	// directory.
	MinInotifyInstances = 128
)

// CheckInotifyWatches checks the per-user inotify watch limit on
// Linux. On platforms without /proc the check passes as not
// applicable.
func (c *Checker) CheckInotifyWatches() CheckResult {
	return c.checkInotifySysctl("inotify_watches", inotifyWatchesPath, MinInotifyWatches,
		"Run 'sudo sysctl fs.inotify.max_user_watches=524288' to increase the limit")
}

// CheckInotifyInstances checks the per-user inotify instance limit on
// Linux.
func (c *Checker) CheckInotifyInstances() CheckResult {
	return c.checkInotifySysctl("inotify_instances", inotifyInstancesPath, MinInotifyInstances,
		"Run 'sudo sysctl fs.inotify.max_user_instances=512' to increase the limit")
}

func (c *Checker) checkInotifySysctl(name, path string, minimum int, hint string) CheckResult {
	result := CheckResult{
		Name:     name,
		Required: false,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Not Linux, the native backend has its own limits
			result.Status = StatusPass
			result.Message = "not applicable on this platform"
			return result
		}
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot read %s: %v", path, err)
		return result
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("unexpected value in %s: %q", path, strings.TrimSpace(string(data)))
		return result
	}

	if value < minimum {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d (recommended: %d)", value, minimum)
		result.Details = hint
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d (recommended: %d)", value, minimum)
	return result
}
