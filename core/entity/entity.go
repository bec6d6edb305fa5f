package entity

import (
	"fmt"

	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// Encoding selects how run-length rules on a curtailable load are expressed.
type Encoding int

const (
	// EncodingRelaxed uses sliding-window energy rows over the continuous
	// power variables.
	EncodingRelaxed Encoding = iota
	// EncodingDiscrete adds binary full-output indicators and expresses the
	// run-length rules on them.
	EncodingDiscrete
)

func (e Encoding) String() string {
	switch e {
	case EncodingRelaxed:
		return "relaxed"
	case EncodingDiscrete:
		return "discrete"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding maps a configuration string onto an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "relaxed":
		return EncodingRelaxed, nil
	case "discrete":
		return EncodingDiscrete, nil
	default:
		return 0, fmt.Errorf("entity: unknown encoding %q", s)
	}
}

// Electrical is the capability to expose per-timestep electric power
// variables for the current window.
type Electrical interface {
	PowerVars() []solve.VarID
}

// HistoryDependent marks entities whose feasible region in the current
// window derives from realized operating history before the window.
type HistoryDependent interface {
	// HistoryBounds returns the handle table of the rows whose bounds are
	// rewritten from history, keyed by row handle.
	HistoryBounds() map[solve.ConstrID]float64
}

// Entity is one scheduling participant. Populate creates its variables and
// rows exactly once per run; Update rewrites coefficients and bounds for the
// window starting at the grid's current timestep. The coordinator only ever
// talks to these methods, never to concrete types.
type Entity interface {
	Electrical
	ID() string
	Populate(m *solve.Model, grid *model.TimeGrid) error
	Update(m *solve.Model, grid *model.TimeGrid) error
	UpdateSchedule(grid *model.TimeGrid, window []float64)
	Schedule() model.Schedule
}

// ConfigError reports invalid entity construction parameters. It is raised
// before any model is populated.
type ConfigError struct {
	Entity string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("entity %s: invalid configuration: %s", e.Entity, e.Reason)
}

// base carries the identity, schedule and reference-schedule bookkeeping
// shared by all entity types.
type base struct {
	id    string
	sched model.Schedule
	vars  []solve.VarID
	refs  map[string]model.Schedule
}

func newBase(id string, simuHorizon int) base {
	return base{id: id, sched: model.NewSchedule(simuHorizon)}
}

func (b *base) ID() string { return b.id }

func (b *base) Schedule() model.Schedule { return b.sched }

func (b *base) PowerVars() []solve.VarID { return b.vars }

func (b *base) UpdateSchedule(grid *model.TimeGrid, window []float64) {
	b.sched.SetWindow(grid, window)
}

// CopySchedule snapshots the current schedule under the given name.
func (b *base) CopySchedule(name string) {
	if b.refs == nil {
		b.refs = make(map[string]model.Schedule)
	}
	b.refs[name] = b.sched.Clone()
}

// NamedSchedule returns a previously copied schedule, or nil.
func (b *base) NamedSchedule(name string) model.Schedule { return b.refs[name] }
