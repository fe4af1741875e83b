//go:build linux

// internal/drivers/birthtime_linux.go
package drivers

import (
	"time"

	"golang.org/x/sys/unix"
)

// statBirthTime asks statx for the creation time. Filesystems that do not
// record one leave STATX_BTIME unset and the zero time is returned.
func statBirthTime(path string, follow bool) time.Time {
	flags := unix.AT_STATX_SYNC_AS_STAT
	if !follow {
		flags |= unix.AT_SYMLINK_NOFOLLOW
	}

	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, flags, unix.STATX_BTIME, &stx); err != nil {
		return time.Time{}
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return time.Time{}
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
}
