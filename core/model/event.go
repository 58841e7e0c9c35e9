package model

import (
	"encoding/json"

	"github.com/kilianp07/dutyplan/core/clock"
)

// EventType discriminates duty events in their JSON form.
type EventType string

const (
	EventCallingTime   EventType = "Calling Time"
	EventPreparation   EventType = "Preparation"
	EventDepotMovement EventType = "Depot Movement"
	EventTrip          EventType = "Trip"
	EventBreak         EventType = "Break"
	EventTripToDepot   EventType = "Trip to Depot"
	EventCheckingTime  EventType = "Checking Time"
	EventDutyEnd       EventType = "Duty End"
)

// Event is one entry of a duty timeline. At returns the effective time in
// absolute minutes, which may run past midnight.
type Event interface {
	Type() EventType
	At() int
}

// Marker is a point-in-time event: calling, preparation, checking or duty end.
type Marker struct {
	Kind EventType
	Time int
}

func (m Marker) Type() EventType { return m.Kind }
func (m Marker) At() int         { return m.Time }

// MarshalJSON renders {type, time}.
func (m Marker) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type EventType `json:"type"`
		Time string    `json:"time"`
	}{m.Kind, clock.Format(m.Time)})
}

// Movement is a dead run between the depot and a terminal.
type Movement struct {
	Kind      EventType
	Departure int
	Arrival   int
	From      string
	To        string
}

func (m Movement) Type() EventType { return m.Kind }
func (m Movement) At() int         { return m.Departure }

type movementLeg struct {
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
}

// MarshalJSON renders {type, legs:[{departureTime, arrivalTime}]}.
func (m Movement) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type EventType     `json:"type"`
		Legs []movementLeg `json:"legs"`
	}{m.Kind, []movementLeg{{clock.Format(m.Departure), clock.Format(m.Arrival)}}})
}

// TripLeg is one directional leg inside a Trip.
type TripLeg struct {
	Number    int
	Departure int
	From      string
	Arrival   int
	To        string
}

// Duration of the leg in minutes.
func (l TripLeg) Duration() int { return l.Arrival - l.Departure }

type tripLegJSON struct {
	LegNumber         int    `json:"legNumber"`
	DepartureTime     string `json:"departureTime"`
	DepartureLocation string `json:"departureLocation"`
	ArrivalTime       string `json:"arrivalTime"`
	ArrivalLocation   string `json:"arrivalLocation"`
}

// Trip groups one outbound leg and, on round trips, its return.
type Trip struct {
	Number int
	Legs   []TripLeg
}

func (t Trip) Type() EventType { return EventTrip }

func (t Trip) At() int {
	if len(t.Legs) == 0 {
		return 0
	}
	return t.Legs[0].Departure
}

// End returns the arrival of the last leg.
func (t Trip) End() int {
	if len(t.Legs) == 0 {
		return 0
	}
	return t.Legs[len(t.Legs)-1].Arrival
}

// MarshalJSON renders {type, tripNumber, legs:[...]}.
func (t Trip) MarshalJSON() ([]byte, error) {
	legs := make([]tripLegJSON, len(t.Legs))
	for i, l := range t.Legs {
		legs[i] = tripLegJSON{
			LegNumber:         l.Number,
			DepartureTime:     clock.Format(l.Departure),
			DepartureLocation: l.From,
			ArrivalTime:       clock.Format(l.Arrival),
			ArrivalLocation:   l.To,
		}
	}
	return json.Marshal(struct {
		Type       EventType     `json:"type"`
		TripNumber int           `json:"tripNumber"`
		Legs       []tripLegJSON `json:"legs"`
	}{EventTrip, t.Number, legs})
}

// Break is the crew rest taken at a terminal.
type Break struct {
	Location string
	Start    int
	End      int
}

func (b Break) Type() EventType { return EventBreak }
func (b Break) At() int         { return b.Start }

// Minutes returns the break length.
func (b Break) Minutes() int { return b.End - b.Start }

// MarshalJSON renders {type, location, startTime, endTime}.
func (b Break) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      EventType `json:"type"`
		Location  string    `json:"location"`
		StartTime string    `json:"startTime"`
		EndTime   string    `json:"endTime"`
	}{EventBreak, b.Location, clock.Format(b.Start), clock.Format(b.End)})
}

// ScheduleResult groups duty timelines by shift id then duty id.
type ScheduleResult struct {
	Schedules map[string]map[string][]Event `json:"schedules"`
	Warnings  []string                      `json:"warnings"`
}

// NewScheduleResult returns an empty result with non-nil collections.
func NewScheduleResult() ScheduleResult {
	return ScheduleResult{
		Schedules: map[string]map[string][]Event{},
		Warnings:  []string{},
	}
}
