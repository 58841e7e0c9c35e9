package dispatch

import "testing"

func TestConfigDefaults(t *testing.T) {
	c := Config{MaxRetries: 3}
	c.SetDefaults()
	if c.MaxRetries != 3 || c.DriftCapMinutes != 15 || c.ShiftCapMinutes != 10 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.PreparationMinutes != 15 || c.CheckingMinutes != 15 || c.DefaultHeadway != 10 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	c.ShiftCapMinutes = 30
	if err := c.Validate(); err == nil {
		t.Fatal("expected shift cap error")
	}
	c = DefaultConfig()
	c.MinDutyMinutes = -1
	if err := c.Validate(); err == nil {
		t.Fatal("expected min duty error")
	}
}

func TestMinDutyFloor(t *testing.T) {
	r := baseRoute()
	r.DutyDurationHours = 1
	cfg := DefaultConfig()
	cfg.MinDutyMinutes = 120
	p := Compute(r, cfg)
	evs := p.Result.Schedules["S1"]["Bus 1 - S1"]
	last := evs[len(evs)-1]
	// A one hour duty cannot be padded past its own end.
	if last.At() != 360+60 {
		t.Fatalf("expected duty end at 07:00, got %d", last.At())
	}
}
