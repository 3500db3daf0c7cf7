// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the shots of one run. Split statistics only cover shot 2
// onwards; the first split is the draw time and is reported as FirstShot.
type Summary struct {
	Shots       int
	FirstShot   time.Duration
	Total       time.Duration
	BestSplit   time.Duration
	WorstSplit  time.Duration
	MeanSplit   time.Duration
	StdDevSplit time.Duration
}

// Summarize computes a Summary from events in detection order.
func Summarize(events []ShotEvent) Summary {
	if len(events) == 0 {
		return Summary{}
	}

	s := Summary{
		Shots:     len(events),
		FirstShot: events[0].Time,
		Total:     events[len(events)-1].Time,
	}
	if len(events) < 2 {
		return s
	}

	splits := make([]float64, 0, len(events)-1)
	for _, e := range events[1:] {
		splits = append(splits, float64(e.Split.Milliseconds()))
	}

	mean, std := stat.MeanStdDev(splits, nil)
	if math.IsNaN(std) {
		std = 0
	}

	s.BestSplit = msDuration(floats.Min(splits))
	s.WorstSplit = msDuration(floats.Max(splits))
	s.MeanSplit = msDuration(mean)
	s.StdDevSplit = msDuration(std)
	return s
}

func (s Summary) String() string {
	if s.Shots == 0 {
		return "no shots"
	}
	if s.Shots == 1 {
		return fmt.Sprintf("1 shot, first %s", FormatElapsed(s.FirstShot))
	}
	return fmt.Sprintf("%d shots, first %s, total %s, splits best %s / worst %s / mean %s (sd %s)",
		s.Shots,
		FormatElapsed(s.FirstShot),
		FormatElapsed(s.Total),
		FormatElapsed(s.BestSplit),
		FormatElapsed(s.WorstSplit),
		FormatElapsed(s.MeanSplit),
		FormatElapsed(s.StdDevSplit))
}

func msDuration(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}
