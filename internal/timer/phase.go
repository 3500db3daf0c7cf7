// SPDX-License-Identifier: MIT
package timer

// Phase is where a drill is in its sequence.
type Phase int

const (
	Idle     Phase = iota // Nothing scheduled, clock stopped
	Armed                 // Start requested, worker launched
	Standby               // Playing a "ready, standby" cue
	Delaying              // Waiting out the start delay
	Running               // Start cue sounded, clock running, shots recorded
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Standby:
		return "standby"
	case Delaying:
		return "delaying"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}
