// Package progress carries progress notifications from long-running builds
// and classifications to whoever is listening.
//
// Producers never block: a send on a full or nil channel is dropped. The
// computed results never depend on whether anyone drains the channel.
package progress

import "fmt"

// Phase names the stage of a run an Event belongs to.
type Phase string

const (
	PhaseParsing     Phase = "parsing"
	PhaseIndexing    Phase = "building_index"
	PhaseClassifying Phase = "classifying"
	PhaseAggregating Phase = "aggregating"
	PhaseComplete    Phase = "complete"
)

// Event reports how many items of a phase have been processed so far.
type Event struct {
	Phase     Phase
	Processed int
	Total     int
}

// Percent returns the completion percentage, 0 when Total is unknown.
func (e Event) Percent() float64 {
	if e.Total <= 0 {
		return 0
	}
	return float64(e.Processed) / float64(e.Total) * 100
}

func (e Event) String() string {
	if e.Total > 0 {
		return fmt.Sprintf("%s: %d/%d (%.1f%%)", e.Phase, e.Processed, e.Total, e.Percent())
	}
	return fmt.Sprintf("%s: %d", e.Phase, e.Processed)
}

// Send delivers ev on ch without blocking. It reports whether the event
// was delivered.
func Send(ch chan<- Event, ev Event) bool {
	if ch == nil {
		return false
	}
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}

// Every returns true when processed falls on a reporting boundary of
// interval, or is the last item.
func Every(processed, total, interval int) bool {
	if interval <= 0 {
		interval = 1
	}
	return processed%interval == 0 || processed == total
}
