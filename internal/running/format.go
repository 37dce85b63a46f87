package running

import (
	"fmt"
	"math"
	"time"
)

// FormatDistance renders meters as kilometers with two decimals, "1.20 km".
func FormatDistance(meters float64) string {
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatDuration renders mm:ss, or h:mm:ss from one hour on.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatPace renders a per-kilometer pace, "05:00 /km". Zero or absurd paces
// render as a placeholder.
func FormatPace(pace time.Duration) string {
	if pace <= 0 || pace >= time.Hour {
		return "--:-- /km"
	}
	return FormatDuration(pace) + " /km"
}

// FormatCadence renders whole steps per minute.
func FormatCadence(spm float64) string {
	return fmt.Sprintf("%d spm", int(math.Round(spm)))
}
