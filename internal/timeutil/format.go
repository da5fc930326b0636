package timeutil

import (
	"fmt"
	"time"
)

// FormatDuration 把时长格式化为 "2d3h4m5s" 这类人类可读形式，
// 用于 /status 与首页的 uptime 展示。
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := d - minutes*time.Minute

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh%dm%ds", days, hours, minutes, seconds/time.Second)
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds/time.Second)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds/time.Second)
	default:
		return fmt.Sprintf("%ds", seconds/time.Second)
	}
}

// FormatUTC 统一的时间戳展示格式。
func FormatUTC(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}
