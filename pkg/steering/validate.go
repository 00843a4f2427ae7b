package steering

import (
	"fmt"

	"github.com/robotalks/linebot/pkg/framework"
)

// Validate checks the invariants of a compiled table:
//   - every row is total over 2^Width symbols;
//   - Stop only goes to Stop and nothing else goes to Stop;
//   - the centered symbol keeps Center in Center;
//   - the graded ladders are monotonic: from a graded state, a symbol
//     classified by Center's row as drift of at least the same level on
//     the same side never lands on a less severe state of that side.
func (t *Table) Validate() error {
	var errs framework.AggregatedError
	for id := range t.states {
		s := &t.states[id]
		if len(s.next) != t.Symbols() {
			errs.Add(t.stateErr(s, "row has %d entries, want %d", len(s.next), t.Symbols()))
			continue
		}
		for sym, to := range s.next {
			if to < 0 || int(to) >= len(t.states) {
				errs.Add(t.stateErr(s, "symbol %d targets invalid state %d", sym, to))
				continue
			}
			if StateID(id) == t.stop && to != t.stop {
				errs.Add(t.stateErr(s, "symbol %d leaves the stop state to %s", sym, t.states[to].Name))
			} else if StateID(id) != t.stop && to == t.stop {
				errs.Add(t.stateErr(s, "symbol %d enters the stop state", sym))
			}
		}
	}
	if err := errs.Aggregate(); err != nil {
		return err
	}
	if t.Step(t.center, t.centered) != t.center {
		errs.Add(t.stateErr(&t.states[t.center], "centered symbol %d does not stay in center", t.centered))
	}
	errs.Add(t.validateLadders())
	return errs.Aggregate()
}

func (t *Table) validateLadders() error {
	var errs framework.AggregatedError
	for id := range t.states {
		s := &t.states[id]
		if !s.Grade.IsGraded() {
			continue
		}
		for sym := range s.next {
			drift := t.Classify(Symbol(sym))
			if drift.Side != s.Grade.Side || drift.Level < s.Grade.Level {
				continue
			}
			to := t.states[s.next[sym]].Grade
			if to.Side != s.Grade.Side || to.Level < s.Grade.Level {
				errs.Add(t.stateErr(s, "symbol %d drifting %s goes back to %s", sym, drift, t.states[s.next[sym]].Name))
			}
		}
	}
	return errs.Aggregate()
}

// Classify returns the grade of the state Center goes to on sym.
func (t *Table) Classify(sym Symbol) Grade {
	return t.states[t.Step(t.center, sym)].Grade
}

func (t *Table) stateErr(s *State, format string, args ...interface{}) error {
	return &ConfigError{Table: t.name, State: s.Name, Rule: -1, Msg: fmt.Sprintf(format, args...)}
}
