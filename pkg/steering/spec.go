package steering

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/linebot/pkg/drive"
)

// DefaultMatch is the match expression covering every symbol not matched
// by an earlier rule.
const DefaultMatch = "default"

// Default role names.
const (
	NameCenter    = "Center"
	NameStop      = "Stop"
	NameError     = "Error"
	NameLostLeft  = "LostLeft"
	NameLostRight = "LostRight"
)

// TableSpec is the data form of a Table.
type TableSpec struct {
	Name  string `yaml:"name"`
	Width int    `yaml:"width"`
	// Centered is the symbol with all center bits set; written as a
	// pattern of Width characters.
	Centered string            `yaml:"centered"`
	Roles    Roles             `yaml:"roles,omitempty"`
	Rows     map[string][]Rule `yaml:"rows,omitempty"`
	States   []StateSpec       `yaml:"states"`
}

// Roles names the states with a special meaning. Empty names fall back to
// the defaults; LostLeft and LostRight are optional.
type Roles struct {
	Initial   string `yaml:"initial,omitempty"`
	Center    string `yaml:"center,omitempty"`
	Stop      string `yaml:"stop,omitempty"`
	Error     string `yaml:"error,omitempty"`
	LostLeft  string `yaml:"lost_left,omitempty"`
	LostRight string `yaml:"lost_right,omitempty"`
}

// StateSpec is the data form of a State.
type StateSpec struct {
	Name    string        `yaml:"name"`
	Grade   Grade         `yaml:"grade,omitempty"`
	Command drive.Command `yaml:"command"`
	// Row names a shared template from TableSpec.Rows.
	Row string `yaml:"row,omitempty"`
	// Rules are evaluated before the rules of Row.
	Rules []Rule `yaml:"rules,omitempty"`
}

// Rule is one ordered transition rule.
type Rule struct {
	Match string `yaml:"match"`
	To    string `yaml:"to"`
}

// On is a shortcut to build a Rule.
func On(match, to string) Rule {
	return Rule{Match: match, To: to}
}

// Side is the side a graded state corrects.
type Side int

// Sides
const (
	None Side = iota
	DriftLeft
	DriftRight
)

var sideNames = []string{"none", "left", "right"}

// String implements fmt.Stringer.
func (s Side) String() string {
	if s < 0 || int(s) >= len(sideNames) {
		return fmt.Sprintf("side(%d)", int(s))
	}
	return sideNames[s]
}

// MarshalYAML implements yaml.Marshaler.
func (s Side) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Side) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	for n, name := range sideNames {
		if strings.EqualFold(name, str) {
			*s = Side(n)
			return nil
		}
	}
	return fmt.Errorf("unknown side %q", str)
}

// Grade is the severity of a state: how far the robot drifted to Side.
// Level 1 to 3 are the graded ladder, a lost state is level 4.
type Grade struct {
	Side  Side `yaml:"side,omitempty"`
	Level int  `yaml:"level,omitempty"`
}

// IsGraded tells whether the grade is on a ladder.
func (g Grade) IsGraded() bool {
	return g.Side != None && g.Level > 0
}

// String implements fmt.Stringer.
func (g Grade) String() string {
	if !g.IsGraded() {
		return "none"
	}
	return g.Side.String() + strconv.Itoa(g.Level)
}

// LostLevel is the grade level of a lost state.
const LostLevel = 4

// matcher is a compiled match expression.
type matcher struct {
	mask, value uint16
	lo, hi      int
	pattern     bool
	all         bool
}

func (m *matcher) matches(sym Symbol) bool {
	switch {
	case m.all:
		return true
	case m.pattern:
		return uint16(sym)&m.mask == m.value
	}
	return int(sym) >= m.lo && int(sym) <= m.hi
}

func isPattern(expr string, width int) bool {
	if len(expr) != width {
		return false
	}
	for _, c := range expr {
		if c != '0' && c != '1' && c != 'x' && c != 'X' {
			return false
		}
	}
	return true
}

// ParsePattern parses a bit pattern of width characters, most significant
// bit first, into a mask and value.
func ParsePattern(expr string, width int) (mask, value uint16, err error) {
	if !isPattern(expr, width) {
		return 0, 0, fmt.Errorf("invalid %d-bit pattern %q", width, expr)
	}
	for n, c := range expr {
		bit := uint16(1) << uint(width-1-n)
		switch c {
		case '1':
			mask |= bit
			value |= bit
		case '0':
			mask |= bit
		}
	}
	return
}

func parseMatch(expr string, width int) (*matcher, error) {
	expr = strings.TrimSpace(expr)
	if expr == DefaultMatch || expr == "*" {
		return &matcher{all: true}, nil
	}
	if isPattern(expr, width) {
		mask, value, err := ParsePattern(expr, width)
		if err != nil {
			return nil, err
		}
		return &matcher{mask: mask, value: value, pattern: true}, nil
	}
	limit := 1 << uint(width)
	lo, hi := expr, expr
	if pos := strings.Index(expr, "-"); pos > 0 {
		lo, hi = expr[:pos], expr[pos+1:]
	}
	l, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return nil, fmt.Errorf("invalid match %q", expr)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return nil, fmt.Errorf("invalid match %q", expr)
	}
	if l < 0 || h >= limit || l > h {
		return nil, fmt.Errorf("match %q out of range [0, %d)", expr, limit)
	}
	return &matcher{lo: l, hi: h}, nil
}

func (r Roles) withDefaults() Roles {
	if r.Center == "" {
		r.Center = NameCenter
	}
	if r.Stop == "" {
		r.Stop = NameStop
	}
	if r.Error == "" {
		r.Error = NameError
	}
	if r.Initial == "" {
		r.Initial = r.Center
	}
	return r
}
