package form

import (
	"fmt"
	"time"
)

// Closed is shown once the submission deadline has passed.
const Closed = "Encerrado"

// TimeLeft renders the countdown to deadline as "{d}d {h}h {m}m {s}s",
// or Closed when now is at or past it.
func TimeLeft(now, deadline time.Time) string {
	diff := deadline.Sub(now)
	if diff <= 0 {
		return Closed
	}
	total := int64(diff / time.Second)
	days := total / 86400
	hours := (total / 3600) % 24
	minutes := (total / 60) % 60
	seconds := total % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}
