//go:build darwin

package sysmem

import "golang.org/x/sys/unix"

func totalSystemMemory() (uint64, bool) {
	mem, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, false
	}
	return mem, true
}
