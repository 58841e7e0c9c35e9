package dispatch

import "github.com/kilianp07/dutyplan/core/model"

// format groups finalized duties by shift id then duty id.
func format(duties []finishedDuty) map[string]map[string][]model.Event {
	out := make(map[string]map[string][]model.Event)
	for _, fd := range duties {
		sid := shiftID(fd.duty.shift)
		shift, ok := out[sid]
		if !ok {
			shift = make(map[string][]model.Event)
			out[sid] = shift
		}
		shift[fd.duty.id] = fd.attempt.events
	}
	return out
}
