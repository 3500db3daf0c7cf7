// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"time"
)

// DefaultTimerValue is what an idle or reset clock displays.
const DefaultTimerValue = "00:00:000"

// ShotEvent is a single detected shot. Time is measured from the start of the
// run and Split from the previous shot (or from the start for the first one).
// Both are whole milliseconds.
type ShotEvent struct {
	Number int
	Time   time.Duration
	Split  time.Duration
}

func (e ShotEvent) String() string {
	return fmt.Sprintf("Shot %d detected @ %s. Split=%s", e.Number, FormatElapsed(e.Time), FormatElapsed(e.Split))
}

// FormatElapsed renders d as minutes:seconds:millis, e.g. "01:02:345".
// Minutes wrap at the hour like a stopwatch display.
func FormatElapsed(d time.Duration) string {
	if d <= 0 {
		return DefaultTimerValue
	}
	ms := d.Milliseconds()
	minutes := (ms / 60000) % 60
	seconds := (ms / 1000) % 60
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%03d", minutes, seconds, millis)
}
