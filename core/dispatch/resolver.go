package dispatch

// ConflictStrategy decides what happens when a candidate departure falls
// within one headway of a committed departure in the same direction.
type ConflictStrategy interface {
	Name() string
	// Resolve returns either the departure to use instead of t, or
	// abort=true with the forward shift the whole duty needs.
	Resolve(reg *Registry, dir Direction, t, headway int) (dep, shift int, abort bool)
}

// StrictStrategy aborts the attempt and asks for the smallest start shift
// that clears the blocking departures.
type StrictStrategy struct{}

func (StrictStrategy) Name() string { return "strict" }

func (StrictStrategy) Resolve(reg *Registry, dir Direction, t, headway int) (int, int, bool) {
	return t, reg.Clear(dir, t, headway) - t, true
}

// ForcedFitStrategy pushes the single departure forward in headway steps
// until it is clear. The caller extends the duty by the delay.
type ForcedFitStrategy struct{}

func (ForcedFitStrategy) Name() string { return "forced_fit" }

func (ForcedFitStrategy) Resolve(reg *Registry, dir Direction, t, headway int) (int, int, bool) {
	return reg.Step(dir, t, headway), 0, false
}

// resolver runs the attempt loop of one duty:
// attempting, shifted on conflict, forced once retries or drift run out.
type resolver struct {
	engine   *engine
	strict   ConflictStrategy
	fallback ConflictStrategy
}

func newResolver(e *engine) *resolver {
	return &resolver{engine: e, strict: StrictStrategy{}, fallback: ForcedFitStrategy{}}
}

// resolve returns the committed attempt for d. The registry is only read.
func (r *resolver) resolve(d *duty, reg *Registry) *attempt {
	cfg := r.engine.cfg
	for {
		strategy := r.strict
		if d.fallback {
			strategy = r.fallback
		}
		out := r.engine.run(d, strategy, reg)
		if !out.conflict {
			return out.attempt
		}
		shift := out.shift
		if shift > cfg.ShiftCapMinutes {
			shift = cfg.ShiftCapMinutes
		}
		if shift <= 0 || d.retries >= cfg.MaxRetries || d.drift+shift > cfg.DriftCapMinutes {
			d.fallback = true
			continue
		}
		d.start += shift
		d.end += shift
		d.drift += shift
		d.retries++
	}
}
