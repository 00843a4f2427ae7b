// Package drive defines the command vocabulary of a differential drivetrain
// and the actuator contract the steering core talks to.
package drive

import (
	"fmt"
	"strings"
)

// DutyMax is the largest duty value accepted by an actuator. It equals the
// PWM period at 100Hz of the reference motor driver.
const DutyMax uint16 = 14998

// Direction selects how the two wheels turn.
type Direction int

// Directions
const (
	Stop Direction = iota
	Forward
	Left     // left wheel backward, right wheel forward: pivot left.
	Right    // left wheel forward, right wheel backward: pivot right.
	Backward
)

var directionNames = []string{"stop", "forward", "left", "right", "backward"}

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection parses the name of a direction.
func ParseDirection(s string) (Direction, error) {
	for n, name := range directionNames {
		if strings.EqualFold(s, name) {
			return Direction(n), nil
		}
	}
	return Stop, fmt.Errorf("unknown direction %q", s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Direction) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Direction) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Color is a 3-bit RGB status indicator code (bit 0 red, bit 1 green,
// bit 2 blue), the way the LaunchPad LED is driven.
type Color uint8

// Colors
const (
	Dark    Color = 0
	Red     Color = 1
	Green   Color = 2
	Yellow  Color = 3
	Blue    Color = 4
	Pink    Color = 5
	SkyBlue Color = 6
	White   Color = 7
)

var colorNames = []string{"dark", "red", "green", "yellow", "blue", "pink", "skyblue", "white"}

// String implements fmt.Stringer.
func (c Color) String() string {
	if int(c) >= len(colorNames) {
		return fmt.Sprintf("color(%d)", int(c))
	}
	return colorNames[c]
}

// ParseColor parses a color name.
func ParseColor(s string) (Color, error) {
	for n, name := range colorNames {
		if strings.EqualFold(s, name) {
			return Color(n), nil
		}
	}
	return Dark, fmt.Errorf("unknown color %q", s)
}

// MarshalYAML implements yaml.Marshaler.
func (c Color) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Command is a complete instruction for the drivetrain.
type Command struct {
	Direction Direction `yaml:"direction"`
	Left      uint16    `yaml:"left,omitempty"`
	Right     uint16    `yaml:"right,omitempty"`
	Indicator Color     `yaml:"indicator,omitempty"`
}

// Halt is the zero-power command.
var Halt = Command{Direction: Stop}

// IsMoving tells whether the command powers any wheel.
func (c Command) IsMoving() bool {
	return c.Direction != Stop && (c.Left != 0 || c.Right != 0)
}

// Validate checks duty bounds.
func (c Command) Validate() error {
	if c.Direction < Stop || c.Direction > Backward {
		return fmt.Errorf("invalid direction %d", int(c.Direction))
	}
	if c.Left > DutyMax || c.Right > DutyMax {
		return fmt.Errorf("duty %d/%d exceeds %d", c.Left, c.Right, DutyMax)
	}
	if c.Indicator > White {
		return fmt.Errorf("invalid indicator %d", c.Indicator)
	}
	return nil
}

// WheelSigns returns the rotation sign of the left and right wheel
// (1 forward, -1 backward, 0 stopped).
func (c Command) WheelSigns() (left, right int) {
	switch c.Direction {
	case Forward:
		return 1, 1
	case Backward:
		return -1, -1
	case Left:
		return -1, 1
	case Right:
		return 1, -1
	}
	return 0, 0
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return fmt.Sprintf("%s(%d,%d)", c.Direction, c.Left, c.Right)
}

// Actuator applies commands to the physical drivetrain.
// Implementations must be safe for concurrent use: Stop may be called from
// the collision watcher while the control loop applies commands.
type Actuator interface {
	// Apply issues the command. Applying an unchanged command again
	// must be harmless.
	Apply(Command) error
	// Stop removes power from both wheels on the shortest path.
	Stop() error
}

// Indicator is optionally implemented by actuators which can show the
// status color of a command.
type Indicator interface {
	Indicate(Color) error
}
