package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/kilianp07/dutyplan/core/clock"
	"github.com/kilianp07/dutyplan/core/model"
)

// Row is one flattened timetable line. Trips produce one row per leg.
type Row struct {
	Shift    string
	Duty     string
	Event    model.EventType
	Trip     int
	Leg      int
	From     string
	To       string
	Start    int
	End      int
	HasRange bool
}

var csvHeader = []string{"shift", "duty", "event", "trip_number", "leg_number", "from", "to", "start", "end"}

// WriteJSON writes the schedule result to w in its API JSON form.
func WriteJSON(w io.Writer, res model.ScheduleResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteCSV writes one line per event, and one per leg for trips.
func WriteCSV(w io.Writer, res model.ScheduleResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range Rows(res) {
		rec := []string{r.Shift, r.Duty, string(r.Event), "", "", r.From, r.To, clock.Format(r.Start), ""}
		if r.Trip > 0 {
			rec[3] = strconv.Itoa(r.Trip)
			rec[4] = strconv.Itoa(r.Leg)
		}
		if r.HasRange {
			rec[8] = clock.Format(r.End)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Rows flattens res in shift then duty order.
func Rows(res model.ScheduleResult) []Row {
	var rows []Row
	for _, shift := range SortedKeys(res.Schedules) {
		duties := res.Schedules[shift]
		for _, duty := range SortedKeys(duties) {
			for _, ev := range duties[duty] {
				rows = append(rows, eventRows(shift, duty, ev)...)
			}
		}
	}
	return rows
}

func eventRows(shift, duty string, ev model.Event) []Row {
	base := Row{Shift: shift, Duty: duty, Event: ev.Type(), Start: ev.At()}
	switch e := ev.(type) {
	case model.Trip:
		rows := make([]Row, 0, len(e.Legs))
		for _, l := range e.Legs {
			r := base
			r.Trip, r.Leg = e.Number, l.Number
			r.From, r.To = l.From, l.To
			r.Start, r.End, r.HasRange = l.Departure, l.Arrival, true
			rows = append(rows, r)
		}
		return rows
	case model.Movement:
		base.From, base.To = e.From, e.To
		base.End, base.HasRange = e.Arrival, true
	case model.Break:
		base.From = e.Location
		base.End, base.HasRange = e.End, true
	}
	return []Row{base}
}

// SortedKeys returns the keys of m in natural order, so "Bus 10" sorts
// after "Bus 2".
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })
	return keys
}

func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, cb := rune(a[0]), rune(b[0])
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			na, ra := leadingNumber(a)
			nb, rb := leadingNumber(b)
			if na != nb {
				return na < nb
			}
			a, b = ra, rb
			continue
		}
		if ca != cb {
			return ca < cb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func leadingNumber(s string) (int, string) {
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end < 0 {
		end = len(s)
	}
	n, _ := strconv.Atoi(s[:end])
	return n, s[end:]
}
