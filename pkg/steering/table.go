// Package steering implements the table driven steering state machine.
//
// A Table is compiled once from a TableSpec and never mutated afterwards:
// every state carries a dense transition row of 2^width entries, so Step
// is a plain index lookup and is safe for concurrent use.
package steering

import (
	"errors"
	"fmt"

	"github.com/robotalks/linebot/pkg/drive"
	"github.com/robotalks/linebot/pkg/framework"
)

// MaxWidth is the largest supported symbol width.
const MaxWidth = 8

// Symbol is a quantized sensor reading.
type Symbol uint8

// StateID indexes a state in a Table.
type StateID int

// NoState is the ID of an absent optional role.
const NoState StateID = -1

// ErrUnknownState is reported when looking up a state name not in the table.
var ErrUnknownState = errors.New("unknown state")

// ConfigError describes a defect in a TableSpec.
type ConfigError struct {
	Table string
	State string
	Rule  int
	Msg   string
}

// Error implements error.
func (e *ConfigError) Error() string {
	msg := "table " + e.Table
	if e.State != "" {
		msg += " state " + e.State
	}
	if e.Rule >= 0 {
		msg += fmt.Sprintf(" rule %d", e.Rule)
	}
	return msg + ": " + e.Msg
}

// State is a compiled state.
type State struct {
	Name    string
	Command drive.Command
	Grade   Grade

	next []StateID
}

// Table is a compiled steering table.
type Table struct {
	name     string
	width    int
	centered Symbol
	states   []State
	byName   map[string]StateID

	initial, center, stop, errState StateID
	lostLeft, lostRight             StateID

	spec TableSpec
}

// Step returns the successor of cur on sym.
// sym must be below 1<<Width and cur a valid ID.
func (t *Table) Step(cur StateID, sym Symbol) StateID {
	return t.states[cur].next[sym]
}

// Name returns the name of the table.
func (t *Table) Name() string { return t.name }

// Width returns the symbol width.
func (t *Table) Width() int { return t.width }

// Symbols returns the number of symbols, 1<<Width.
func (t *Table) Symbols() int { return 1 << uint(t.width) }

// Centered returns the centered symbol.
func (t *Table) Centered() Symbol { return t.centered }

// Len returns the number of states.
func (t *Table) Len() int { return len(t.states) }

// State returns the state by ID.
func (t *Table) State(id StateID) *State { return &t.states[id] }

// Lookup finds a state by name.
func (t *Table) Lookup(name string) (StateID, error) {
	if id, ok := t.byName[name]; ok {
		return id, nil
	}
	return NoState, fmt.Errorf("%w: %s", ErrUnknownState, name)
}

// Initial returns the starting state.
func (t *Table) Initial() StateID { return t.initial }

// Center returns the Center role.
func (t *Table) Center() StateID { return t.center }

// Stop returns the Stop role.
func (t *Table) Stop() StateID { return t.stop }

// Error returns the Error role.
func (t *Table) Error() StateID { return t.errState }

// LostLeft returns the LostLeft role or NoState.
func (t *Table) LostLeft() StateID { return t.lostLeft }

// LostRight returns the LostRight role or NoState.
func (t *Table) LostRight() StateID { return t.lostRight }

// Spec returns the spec the table was compiled from.
func (t *Table) Spec() TableSpec { return t.spec }

// MustCompile is Compile which panics on error.
func MustCompile(spec TableSpec) *Table {
	t, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return t
}

type compiledRule struct {
	m  *matcher
	to StateID
}

// Compile expands and validates a TableSpec.
func Compile(spec TableSpec) (*Table, error) {
	if spec.Width < 1 || spec.Width > MaxWidth {
		return nil, &ConfigError{Table: spec.Name, Rule: -1, Msg: fmt.Sprintf("width %d out of range [1, %d]", spec.Width, MaxWidth)}
	}
	if len(spec.States) == 0 {
		return nil, &ConfigError{Table: spec.Name, Rule: -1, Msg: "no states"}
	}
	t := &Table{
		name:   spec.Name,
		width:  spec.Width,
		states: make([]State, len(spec.States)),
		byName: make(map[string]StateID),
		spec:   spec,
	}
	for n, s := range spec.States {
		if s.Name == "" {
			return nil, &ConfigError{Table: spec.Name, Rule: -1, Msg: fmt.Sprintf("state %d has no name", n)}
		}
		if _, exist := t.byName[s.Name]; exist {
			return nil, &ConfigError{Table: spec.Name, State: s.Name, Rule: -1, Msg: "duplicated state"}
		}
		if err := s.Command.Validate(); err != nil {
			return nil, &ConfigError{Table: spec.Name, State: s.Name, Rule: -1, Msg: err.Error()}
		}
		if s.Grade.Side != None && (s.Grade.Level < 1 || s.Grade.Level > LostLevel) {
			return nil, &ConfigError{Table: spec.Name, State: s.Name, Rule: -1, Msg: fmt.Sprintf("grade level %d out of range [1, %d]", s.Grade.Level, LostLevel)}
		}
		t.byName[s.Name] = StateID(n)
		t.states[n] = State{Name: s.Name, Command: s.Command, Grade: s.Grade}
	}
	if err := t.resolveRoles(spec.Roles.withDefaults()); err != nil {
		return nil, err
	}
	if err := t.resolveCentered(spec.Centered); err != nil {
		return nil, err
	}

	rows := make(map[string][]compiledRule)
	for name, rules := range spec.Rows {
		compiled, err := t.compileRules("", rules)
		if err != nil {
			err.Msg = "row " + name + ": " + err.Msg
			return nil, err
		}
		rows[name] = compiled
	}

	var errs framework.AggregatedError
	for n, s := range spec.States {
		rules, err := t.compileRules(s.Name, s.Rules)
		if err != nil {
			return nil, err
		}
		if s.Row != "" {
			shared, ok := rows[s.Row]
			if !ok {
				return nil, &ConfigError{Table: spec.Name, State: s.Name, Rule: -1, Msg: "unknown row " + s.Row}
			}
			rules = append(rules, shared...)
		}
		next := make([]StateID, t.Symbols())
		for sym := range next {
			next[sym] = NoState
			for _, r := range rules {
				if r.m.matches(Symbol(sym)) {
					next[sym] = r.to
					break
				}
			}
			if next[sym] == NoState {
				errs.Add(&ConfigError{Table: spec.Name, State: s.Name, Rule: -1, Msg: fmt.Sprintf("no transition for symbol %d", sym)})
				break
			}
		}
		t.states[n].next = next
	}
	if err := errs.Aggregate(); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) resolveRoles(roles Roles) error {
	required := []struct {
		name string
		id   *StateID
	}{
		{roles.Initial, &t.initial},
		{roles.Center, &t.center},
		{roles.Stop, &t.stop},
		{roles.Error, &t.errState},
	}
	for _, r := range required {
		id, ok := t.byName[r.name]
		if !ok {
			return &ConfigError{Table: t.name, State: r.name, Rule: -1, Msg: "missing role state"}
		}
		*r.id = id
	}
	optional := []struct {
		name string
		id   *StateID
	}{
		{roles.LostLeft, &t.lostLeft},
		{roles.LostRight, &t.lostRight},
	}
	for _, r := range optional {
		*r.id = NoState
		if r.name == "" {
			continue
		}
		id, ok := t.byName[r.name]
		if !ok {
			return &ConfigError{Table: t.name, State: r.name, Rule: -1, Msg: "missing role state"}
		}
		*r.id = id
	}
	return nil
}

func (t *Table) resolveCentered(expr string) error {
	if expr == "" {
		return &ConfigError{Table: t.name, Rule: -1, Msg: "centered symbol not specified"}
	}
	m, err := parseMatch(expr, t.width)
	if err != nil {
		return &ConfigError{Table: t.name, Rule: -1, Msg: "centered: " + err.Error()}
	}
	switch {
	case m.pattern && m.mask == uint16(t.Symbols()-1):
		t.centered = Symbol(m.value)
	case !m.pattern && !m.all && m.lo == m.hi:
		t.centered = Symbol(m.lo)
	default:
		return &ConfigError{Table: t.name, Rule: -1, Msg: fmt.Sprintf("centered %q is not a single symbol", expr)}
	}
	return nil
}

func (t *Table) compileRules(state string, rules []Rule) ([]compiledRule, *ConfigError) {
	compiled := make([]compiledRule, 0, len(rules))
	for n, r := range rules {
		m, err := parseMatch(r.Match, t.width)
		if err != nil {
			return nil, &ConfigError{Table: t.name, State: state, Rule: n, Msg: err.Error()}
		}
		to, ok := t.byName[r.To]
		if !ok {
			return nil, &ConfigError{Table: t.name, State: state, Rule: n, Msg: "unknown target " + r.To}
		}
		compiled = append(compiled, compiledRule{m: m, to: to})
	}
	return compiled, nil
}
