// Package recovery escapes a controller stuck in the Error state.
package recovery

import (
	"github.com/robotalks/linebot/pkg/drive"
	"github.com/robotalks/linebot/pkg/steering"
)

// HistorySize is the number of states kept in a History.
const HistorySize = 4

// History is a ring of the most recent states.
type History struct {
	states [HistorySize]steering.StateID
	next   int
	count  int
}

// Push records a state.
func (h *History) Push(id steering.StateID) {
	h.states[h.next] = id
	h.next = (h.next + 1) % HistorySize
	if h.count < HistorySize {
		h.count++
	}
}

// Len returns the number of recorded states.
func (h *History) Len() int {
	return h.count
}

// Recent returns up to n most recent states, the most recent first.
func (h *History) Recent(n int) []steering.StateID {
	if n > h.count {
		n = h.count
	}
	out := make([]steering.StateID, n)
	for i := 0; i < n; i++ {
		out[i] = h.states[(h.next-1-i+HistorySize)%HistorySize]
	}
	return out
}

// Count returns how many of the n most recent states equal id.
func (h *History) Count(id steering.StateID, n int) int {
	count := 0
	for _, s := range h.Recent(n) {
		if s == id {
			count++
		}
	}
	return count
}

// Clear forgets all states.
func (h *History) Clear() {
	h.next, h.count = 0, 0
}

// Policy is the anti-stall heuristic: when Threshold of the last Window
// states are the error state, drive Pulse for PulseTicks ticks.
type Policy struct {
	Window     int           `yaml:"window"`
	Threshold  int           `yaml:"threshold"`
	Pulse      drive.Command `yaml:"pulse"`
	PulseTicks int           `yaml:"pulse_ticks"`
}

// DefaultPulseDuty is the race firmware's recovery duty on both wheels,
// the strongest forward command it issues.
const DefaultPulseDuty = 6000

// DefaultPolicy is the race firmware heuristic.
func DefaultPolicy() *Policy {
	return &Policy{
		Window:     HistorySize,
		Threshold:  3,
		Pulse:      drive.Command{Direction: drive.Forward, Left: DefaultPulseDuty, Right: DefaultPulseDuty},
		PulseTicks: 20,
	}
}

// Check tells whether the heuristic fires for the history. The count is
// taken afresh on every call.
func (p *Policy) Check(h *History, errState steering.StateID) bool {
	if p == nil {
		return false
	}
	window := p.Window
	if window <= 0 || window > HistorySize {
		window = HistorySize
	}
	return h.Count(errState, window) >= p.Threshold
}

// Pulser drives a fired recovery tick by tick.
type Pulser struct {
	remaining int
}

// Start begins a pulse of ticks.
func (p *Pulser) Start(ticks int) {
	if ticks < 1 {
		ticks = 1
	}
	p.remaining = ticks
}

// Active tells whether a pulse is in progress.
func (p *Pulser) Active() bool {
	return p.remaining > 0
}

// Tick consumes one tick of the pulse and tells whether the pulse ended.
func (p *Pulser) Tick() bool {
	if p.remaining <= 0 {
		return false
	}
	p.remaining--
	return p.remaining == 0
}

// Cancel abandons the pulse.
func (p *Pulser) Cancel() {
	p.remaining = 0
}
