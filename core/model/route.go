package model

// Leg is one directional traversal of the route.
type Leg struct {
	Kilometers float64 `json:"kilometers"`
	TimePerKm  float64 `json:"timePerKm"`
}

// Minutes returns the base leg duration before time-of-day adjustments.
func (l Leg) Minutes() float64 {
	if l.Kilometers <= 0 || l.TimePerKm <= 0 {
		return 0
	}
	return l.Kilometers * l.TimePerKm
}

// FrequencyMode selects how the headway is derived.
type FrequencyMode string

const (
	FrequencyStandard FrequencyMode = "standard"
	FrequencyDynamic  FrequencyMode = "dynamic"
)

// Frequency is either Standard (derived from round trip and fleet size) or
// Dynamic with an operator supplied headway.
type Frequency struct {
	Mode           FrequencyMode `json:"mode"`
	DynamicMinutes int           `json:"dynamicMinutes,omitempty"`
}

// StandardFrequency derives the headway from the route.
func StandardFrequency() Frequency { return Frequency{Mode: FrequencyStandard} }

// DynamicFrequency overrides the headway with minutes.
func DynamicFrequency(minutes int) Frequency {
	return Frequency{Mode: FrequencyDynamic, DynamicMinutes: minutes}
}

// Override returns the operator headway if one applies.
func (f Frequency) Override() (int, bool) {
	if f.Mode == FrequencyDynamic && f.DynamicMinutes > 0 {
		return f.DynamicMinutes, true
	}
	return 0, false
}

// ShiftLinkMode determines where shift two and later start.
type ShiftLinkMode string

const (
	// ShiftConsecutive starts shift k one duty length after shift k-1.
	ShiftConsecutive ShiftLinkMode = "consecutive"
	// ShiftFixedClock anchors shift two at a configured clock time.
	ShiftFixedClock ShiftLinkMode = "fixed"
	// ShiftChained starts each duty where the same bus ended its previous one.
	ShiftChained ShiftLinkMode = "chained"
)

// ShiftLinking is the tagged shift-linking variant. StartTime is only read
// for ShiftFixedClock.
type ShiftLinking struct {
	Mode      ShiftLinkMode `json:"mode"`
	StartTime string        `json:"startTime,omitempty"`
}

// Consecutive returns the default linking.
func Consecutive() ShiftLinking { return ShiftLinking{Mode: ShiftConsecutive} }

// FixedClock anchors later shifts at the clock time t.
func FixedClock(t string) ShiftLinking { return ShiftLinking{Mode: ShiftFixedClock, StartTime: t} }

// ChainedFromPrevious chains shifts on the actual end of the previous duty.
func ChainedFromPrevious() ShiftLinking { return ShiftLinking{Mode: ShiftChained} }

// TimeAdjustmentRule adds AdjustmentMinutes to any leg departing in
// [StartTime, EndTime). A start after the end spans midnight.
type TimeAdjustmentRule struct {
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
	AdjustmentMinutes int    `json:"adjustmentMinutes"`
}

// CrewDutyRules describes the mandatory crew break. The window is measured
// in minutes elapsed since duty start.
type CrewDutyRules struct {
	HasBreak             bool   `json:"hasBreak"`
	BreakLocation        string `json:"breakLocation"`
	BreakDuration        int    `json:"breakDuration"`
	BreakWindowStart     int    `json:"breakWindowStart"`
	BreakWindowEnd       int    `json:"breakWindowEnd"`
	BreakLayoverDuration int    `json:"breakLayoverDuration"`
}

// DepotConnections holds directional depot travel times in minutes.
type DepotConnections struct {
	TimeFromDepotToStart int `json:"timeFromDepotToStart"`
	TimeFromDepotToEnd   int `json:"timeFromDepotToEnd"`
	TimeFromStartToDepot int `json:"timeFromStartToDepot"`
	TimeFromEndToDepot   int `json:"timeFromEndToDepot"`
}

// RouteConfig is the normalized input of a schedule computation. It is
// treated as immutable while a computation runs.
type RouteConfig struct {
	FromTerminal        string               `json:"fromTerminal"`
	ToTerminal          string               `json:"toTerminal"`
	Leg1                Leg                  `json:"leg1"`
	Leg2                Leg                  `json:"leg2"`
	BusesAssigned       int                  `json:"busesAssigned"`
	DutyDurationHours   float64              `json:"dutyDurationHours"`
	NumberOfShifts      int                  `json:"numberOfShifts"`
	ShiftLinking        ShiftLinking         `json:"shiftLinking"`
	ServiceStartTime    string               `json:"serviceStartTime"`
	Frequency           Frequency            `json:"frequency"`
	TimeAdjustmentRules []TimeAdjustmentRule `json:"timeAdjustmentRules"`
	CrewDutyRules       CrewDutyRules        `json:"crewDutyRules"`
	IsTurnoutFromDepot  bool                 `json:"isTurnoutFromDepot"`
	DepotName           string               `json:"depotName"`
	DepotConnections    DepotConnections     `json:"depotConnections"`
}

// OneWay reports whether the route has no return leg.
func (r RouteConfig) OneWay() bool { return r.Leg2.Minutes() <= 0 }

// BreakLocation resolves the configured break terminal, defaulting to the
// origin terminal.
func (r RouteConfig) BreakLocation() string {
	if r.CrewDutyRules.BreakLocation != "" {
		return r.CrewDutyRules.BreakLocation
	}
	return r.FromTerminal
}

// Shifts returns the number of shifts to plan, at least one.
func (r RouteConfig) Shifts() int {
	if r.NumberOfShifts < 1 {
		return 1
	}
	return r.NumberOfShifts
}
