// SPDX-License-Identifier: MIT
package timer

import (
	"math"
	"math/rand/v2"
	"time"
)

// delayStep is the granularity of randomized start delays.
const delayStep = 10 * time.Millisecond

// NextDelay returns how long to wait before the start cue.
//
// With random set the delay is drawn uniformly from the whole hundredths of a
// second between minDelay and maxDelay, both ends included. Otherwise it is
// minDelay rounded to the millisecond. A nil rng uses the global source.
func NextDelay(minDelay, maxDelay time.Duration, random bool, rng *rand.Rand) time.Duration {
	minDelay = max(minDelay, 0)
	if !random {
		return minDelay.Round(time.Millisecond)
	}

	lo := int(math.Round(minDelay.Seconds() * 100))
	hi := int(math.Round(max(maxDelay, 0).Seconds() * 100))
	if hi < lo {
		hi = lo
	}

	var n int
	if rng != nil {
		n = lo + rng.IntN(hi-lo+1)
	} else {
		n = lo + rand.IntN(hi-lo+1)
	}
	return time.Duration(n) * delayStep
}
