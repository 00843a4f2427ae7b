// Package sensor folds raw reflectance readings into steering symbols.
package sensor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/linebot/pkg/steering"
)

// Reading is one sample of the reflectance array: bit 0 is the rightmost
// sensor of the robot, bit 7 the leftmost. A set bit sees the line.
type Reading uint8

// String implements fmt.Stringer.
func (r Reading) String() string {
	return fmt.Sprintf("%08b", uint8(r))
}

// Source samples the reflectance array.
type Source interface {
	Sample() (Reading, error)
}

// SourceFunc is the func form of Source.
type SourceFunc func() (Reading, error)

// Sample implements Source.
func (f SourceFunc) Sample() (Reading, error) {
	return f()
}

// Quantizer packs a Reading into a Symbol. Output bit i is set when any
// raw bit in Groups[i] is set, group 0 being the rightmost.
type Quantizer struct {
	Groups    []uint8 `yaml:"groups"`
	ActiveLow bool    `yaml:"active_low,omitempty"`
}

// Built-in quantizers.
var (
	// Six collapses the outer pairs and keeps the middle four sensors.
	Six = Quantizer{Groups: []uint8{0x03, 0x04, 0x08, 0x10, 0x20, 0xC0}}
	// Five additionally merges the two middle sensors.
	Five = Quantizer{Groups: []uint8{0x03, 0x04, 0x18, 0x20, 0xC0}}
	// Four pairs every neighbour.
	Four = Quantizer{Groups: []uint8{0x03, 0x0C, 0x30, 0xC0}}
	// CenterPair only looks at the two middle sensors.
	CenterPair = Quantizer{Groups: []uint8{0x08, 0x10}}
)

var builtins = map[string]Quantizer{
	"six":        Six,
	"five":       Five,
	"four":       Four,
	"centerpair": CenterPair,
}

// ByName returns a built-in quantizer.
func ByName(name string) (Quantizer, bool) {
	q, ok := builtins[strings.ToLower(name)]
	return q, ok
}

// ForWidth returns the built-in quantizer producing symbols of width bits.
func ForWidth(width int) (Quantizer, error) {
	switch width {
	case 6:
		return Six, nil
	case 5:
		return Five, nil
	case 4:
		return Four, nil
	case 2:
		return CenterPair, nil
	}
	return Quantizer{}, fmt.Errorf("no built-in quantizer of width %d", width)
}

// Width is the number of bits in the produced symbols.
func (q Quantizer) Width() int {
	return len(q.Groups)
}

// Validate checks the grouping.
func (q Quantizer) Validate() error {
	if n := len(q.Groups); n < 1 || n > 8 {
		return fmt.Errorf("quantizer needs 1 to 8 groups, got %d", n)
	}
	for n, g := range q.Groups {
		if g == 0 {
			return fmt.Errorf("quantizer group %d is empty", n)
		}
	}
	return nil
}

// Quantize folds a reading into a symbol in [0, 2^Width).
func (q Quantizer) Quantize(r Reading) steering.Symbol {
	raw := uint8(r)
	if q.ActiveLow {
		raw = ^raw
	}
	var sym steering.Symbol
	for n, g := range q.Groups {
		if raw&g != 0 {
			sym |= 1 << uint(n)
		}
	}
	return sym
}

// String implements fmt.Stringer.
func (q Quantizer) String() string {
	groups := make([]string, len(q.Groups))
	for n, g := range q.Groups {
		groups[n] = "0x" + strconv.FormatUint(uint64(g), 16)
	}
	s := "[" + strings.Join(groups, ",") + "]"
	if q.ActiveLow {
		s += " active-low"
	}
	return s
}
