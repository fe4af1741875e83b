//go:build !linux

// internal/drivers/birthtime_other.go
package drivers

import "time"

func statBirthTime(path string, follow bool) time.Time {
	return time.Time{}
}
