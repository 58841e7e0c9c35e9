package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dutyplan/core/clock"
)

// Num is a number that also accepts numeric strings. Stored route records
// historically kept most numbers as strings; an empty string decodes to 0.
type Num float64

// UnmarshalJSON accepts 12, 12.5, "12" and "".
func (n *Num) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		return n.parse(str)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Num(f)
	return nil
}

// UnmarshalBSONValue accepts doubles, integers and numeric strings.
func (n *Num) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Double:
		*n = Num(rv.Double())
	case bsontype.Int32:
		*n = Num(rv.Int32())
	case bsontype.Int64:
		*n = Num(rv.Int64())
	case bsontype.String:
		return n.parse(rv.StringValue())
	case bsontype.Null, bsontype.Undefined:
		*n = 0
	default:
		return fmt.Errorf("cannot decode bson %s into a number", t)
	}
	return nil
}

// UnmarshalYAML accepts plain and quoted scalars.
func (n *Num) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	if value.Tag == "!!null" {
		*n = 0
		return nil
	}
	return n.parse(value.Value)
}

func (n *Num) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid number %q", s)
	}
	*n = Num(f)
	return nil
}

// Float returns n as float64.
func (n Num) Float() float64 { return float64(n) }

// Int returns n rounded to the nearest integer.
func (n Num) Int() int { return clock.Round(float64(n)) }

// NumPtr is a convenience for optional fields.
func NumPtr(f float64) *Num {
	n := Num(f)
	return &n
}

// LegDoc is a leg as stored.
type LegDoc struct {
	Kilometers Num `json:"kilometers" bson:"kilometers" yaml:"kilometers"`
	TimePerKm  Num `json:"timePerKm" bson:"timePerKm" yaml:"timePerKm"`
}

// DepotConnectionsDoc holds depot travel times as stored.
type DepotConnectionsDoc struct {
	TimeFromDepotToStart Num `json:"timeFromDepotToStart" bson:"timeFromDepotToStart" yaml:"timeFromDepotToStart"`
	TimeFromDepotToEnd   Num `json:"timeFromDepotToEnd" bson:"timeFromDepotToEnd" yaml:"timeFromDepotToEnd"`
	TimeFromStartToDepot Num `json:"timeFromStartToDepot" bson:"timeFromStartToDepot" yaml:"timeFromStartToDepot"`
	TimeFromEndToDepot   Num `json:"timeFromEndToDepot" bson:"timeFromEndToDepot" yaml:"timeFromEndToDepot"`
}

// CrewDutyRulesDoc holds break rules as stored. Nil fields take defaults.
type CrewDutyRulesDoc struct {
	HasBreak             *bool  `json:"hasBreak,omitempty" bson:"hasBreak,omitempty" yaml:"hasBreak,omitempty"`
	BreakLocation        string `json:"breakLocation" bson:"breakLocation" yaml:"breakLocation"`
	BreakDuration        *Num   `json:"breakDuration,omitempty" bson:"breakDuration,omitempty" yaml:"breakDuration,omitempty"`
	BreakWindowStart     *Num   `json:"breakWindowStart,omitempty" bson:"breakWindowStart,omitempty" yaml:"breakWindowStart,omitempty"`
	BreakWindowEnd       *Num   `json:"breakWindowEnd,omitempty" bson:"breakWindowEnd,omitempty" yaml:"breakWindowEnd,omitempty"`
	BreakLayoverDuration *Num   `json:"breakLayoverDuration,omitempty" bson:"breakLayoverDuration,omitempty" yaml:"breakLayoverDuration,omitempty"`
}

// TimeAdjustmentRuleDoc is an adjustment window as stored.
type TimeAdjustmentRuleDoc struct {
	StartTime      string `json:"startTime" bson:"startTime" yaml:"startTime"`
	EndTime        string `json:"endTime" bson:"endTime" yaml:"endTime"`
	TimeAdjustment Num    `json:"timeAdjustment" bson:"timeAdjustment" yaml:"timeAdjustment"`
}

// FrequencyDoc is the frequency selector as stored.
type FrequencyDoc struct {
	Type           string `json:"type" bson:"type" yaml:"type"`
	DynamicMinutes Num    `json:"dynamicMinutes" bson:"dynamicMinutes" yaml:"dynamicMinutes"`
}

// RouteDocument is the raw route record accepted by the API and kept by the
// route stores. Normalize turns it into a RouteConfig.
type RouteDocument struct {
	RouteNumber           string                  `json:"routeNumber" bson:"routeNumber" yaml:"routeNumber"`
	RouteName             string                  `json:"routeName" bson:"routeName" yaml:"routeName"`
	FromTerminal          string                  `json:"fromTerminal" bson:"fromTerminal" yaml:"fromTerminal"`
	ToTerminal            string                  `json:"toTerminal" bson:"toTerminal" yaml:"toTerminal"`
	Leg1                  LegDoc                  `json:"leg1" bson:"leg1" yaml:"leg1"`
	Leg2                  *LegDoc                 `json:"leg2,omitempty" bson:"leg2,omitempty" yaml:"leg2,omitempty"`
	DepotName             string                  `json:"depotName" bson:"depotName" yaml:"depotName"`
	IsTurnoutFromDepot    bool                    `json:"isTurnoutFromDepot" bson:"isTurnoutFromDepot" yaml:"isTurnoutFromDepot"`
	DepotConnections      DepotConnectionsDoc     `json:"depotConnections" bson:"depotConnections" yaml:"depotConnections"`
	BusesAssigned         Num                     `json:"busesAssigned" bson:"busesAssigned" yaml:"busesAssigned"`
	ServiceStartTime      string                  `json:"serviceStartTime" bson:"serviceStartTime" yaml:"serviceStartTime"`
	DutyDurationHours     *Num                    `json:"dutyDurationHours,omitempty" bson:"dutyDurationHours,omitempty" yaml:"dutyDurationHours,omitempty"`
	NumberOfShifts        *Num                    `json:"numberOfShifts,omitempty" bson:"numberOfShifts,omitempty" yaml:"numberOfShifts,omitempty"`
	TimeAdjustmentRules   []TimeAdjustmentRuleDoc `json:"timeAdjustmentRules" bson:"timeAdjustmentRules" yaml:"timeAdjustmentRules"`
	CrewDutyRules         *CrewDutyRulesDoc       `json:"crewDutyRules,omitempty" bson:"crewDutyRules,omitempty" yaml:"crewDutyRules,omitempty"`
	Frequency             *FrequencyDoc           `json:"frequency,omitempty" bson:"frequency,omitempty" yaml:"frequency,omitempty"`
	HasDynamicSecondShift bool                    `json:"hasDynamicSecondShift" bson:"hasDynamicSecondShift" yaml:"hasDynamicSecondShift"`
	SecondShiftStartTime  string                  `json:"secondShiftStartTime" bson:"secondShiftStartTime" yaml:"secondShiftStartTime"`
	ShiftLinking          string                  `json:"shiftLinking,omitempty" bson:"shiftLinking,omitempty" yaml:"shiftLinking,omitempty"`
}

// Defaults applied by Normalize.
const (
	DefaultServiceStart      = "00:00"
	DefaultDepotName         = "Depot"
	DefaultTimePerKm         = 5
	DefaultDutyDurationHours = 8
	DefaultBreakDuration     = 30
	DefaultBreakWindowStart  = 150
	DefaultBreakWindowEnd    = 240
)

// Validate checks the fields a route record cannot do without.
func (d RouteDocument) Validate() error {
	required := []struct{ field, value string }{
		{"routeNumber", d.RouteNumber},
		{"routeName", d.RouteName},
		{"fromTerminal", d.FromTerminal},
		{"toTerminal", d.ToTerminal},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Msg: "is required"}
		}
	}
	if d.Leg1.Kilometers <= 0 {
		return &ValidationError{Field: "leg1.kilometers", Msg: "must be greater than 0"}
	}
	if d.Leg1.TimePerKm < 0 {
		return &ValidationError{Field: "leg1.timePerKm", Msg: "must be positive"}
	}
	if d.Leg2 != nil && (d.Leg2.Kilometers < 0 || d.Leg2.TimePerKm < 0) {
		return &ValidationError{Field: "leg2", Msg: "cannot be negative"}
	}
	if d.BusesAssigned < 0 {
		return &ValidationError{Field: "busesAssigned", Msg: "cannot be negative"}
	}
	if d.DutyDurationHours != nil && *d.DutyDurationHours <= 0 {
		return &ValidationError{Field: "dutyDurationHours", Msg: "must be greater than 0"}
	}
	if d.Frequency != nil && d.Frequency.Type != "" &&
		d.Frequency.Type != string(FrequencyStandard) && d.Frequency.Type != string(FrequencyDynamic) {
		return &ValidationError{Field: "frequency.type", Msg: "must be standard or dynamic"}
	}
	switch ShiftLinkMode(d.ShiftLinking) {
	case ShiftFixedClock:
		if strings.TrimSpace(d.SecondShiftStartTime) == "" {
			return &ValidationError{Field: "secondShiftStartTime", Msg: "is required for fixed shift linking"}
		}
	case "", ShiftConsecutive, ShiftChained:
	default:
		return &ValidationError{Field: "shiftLinking", Msg: "must be consecutive, fixed or chained"}
	}
	return nil
}

// Normalize coerces the document into an engine input, applying defaults.
func (d RouteDocument) Normalize() RouteConfig {
	cfg := RouteConfig{
		FromTerminal:       d.FromTerminal,
		ToTerminal:         d.ToTerminal,
		Leg1:               normalizeLeg(d.Leg1),
		BusesAssigned:      d.BusesAssigned.Int(),
		DutyDurationHours:  DefaultDutyDurationHours,
		NumberOfShifts:     1,
		ServiceStartTime:   d.ServiceStartTime,
		Frequency:          StandardFrequency(),
		ShiftLinking:       Consecutive(),
		IsTurnoutFromDepot: d.IsTurnoutFromDepot,
		DepotName:          d.DepotName,
		DepotConnections: DepotConnections{
			TimeFromDepotToStart: d.DepotConnections.TimeFromDepotToStart.Int(),
			TimeFromDepotToEnd:   d.DepotConnections.TimeFromDepotToEnd.Int(),
			TimeFromStartToDepot: d.DepotConnections.TimeFromStartToDepot.Int(),
			TimeFromEndToDepot:   d.DepotConnections.TimeFromEndToDepot.Int(),
		},
		CrewDutyRules: normalizeCrew(d.CrewDutyRules),
	}
	if d.Leg2 != nil {
		cfg.Leg2 = normalizeLeg(*d.Leg2)
	}
	if cfg.ServiceStartTime == "" {
		cfg.ServiceStartTime = DefaultServiceStart
	}
	if cfg.DepotName == "" {
		cfg.DepotName = DefaultDepotName
	}
	if d.DutyDurationHours != nil && *d.DutyDurationHours > 0 {
		cfg.DutyDurationHours = d.DutyDurationHours.Float()
	}
	if d.NumberOfShifts != nil && d.NumberOfShifts.Int() > 1 {
		cfg.NumberOfShifts = d.NumberOfShifts.Int()
	}
	if d.Frequency != nil && FrequencyMode(d.Frequency.Type) == FrequencyDynamic {
		cfg.Frequency = DynamicFrequency(d.Frequency.DynamicMinutes.Int())
	}
	switch {
	case ShiftLinkMode(d.ShiftLinking) == ShiftChained:
		cfg.ShiftLinking = ChainedFromPrevious()
	case ShiftLinkMode(d.ShiftLinking) == ShiftFixedClock,
		d.HasDynamicSecondShift && d.SecondShiftStartTime != "":
		cfg.ShiftLinking = FixedClock(d.SecondShiftStartTime)
	}
	for _, r := range d.TimeAdjustmentRules {
		cfg.TimeAdjustmentRules = append(cfg.TimeAdjustmentRules, TimeAdjustmentRule{
			StartTime:         r.StartTime,
			EndTime:           r.EndTime,
			AdjustmentMinutes: r.TimeAdjustment.Int(),
		})
	}
	return cfg
}

func normalizeLeg(l LegDoc) Leg {
	leg := Leg{Kilometers: l.Kilometers.Float(), TimePerKm: l.TimePerKm.Float()}
	if leg.Kilometers > 0 && leg.TimePerKm <= 0 {
		leg.TimePerKm = DefaultTimePerKm
	}
	return leg
}

func normalizeCrew(c *CrewDutyRulesDoc) CrewDutyRules {
	rules := CrewDutyRules{
		HasBreak:         true,
		BreakDuration:    DefaultBreakDuration,
		BreakWindowStart: DefaultBreakWindowStart,
		BreakWindowEnd:   DefaultBreakWindowEnd,
	}
	if c == nil {
		return rules
	}
	if c.HasBreak != nil {
		rules.HasBreak = *c.HasBreak
	}
	rules.BreakLocation = c.BreakLocation
	if c.BreakDuration != nil {
		rules.BreakDuration = c.BreakDuration.Int()
	}
	if c.BreakWindowStart != nil {
		rules.BreakWindowStart = c.BreakWindowStart.Int()
	}
	if c.BreakWindowEnd != nil {
		rules.BreakWindowEnd = c.BreakWindowEnd.Int()
	}
	if c.BreakLayoverDuration != nil {
		rules.BreakLayoverDuration = c.BreakLayoverDuration.Int()
	}
	return rules
}
