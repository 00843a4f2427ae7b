// Package gpio drives the line follower directly from host GPIO pins: the
// RC-timed reflectance array, the two motor drivers and the bump switches.
package gpio

import (
	"fmt"
	"strings"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// Pins names the host pins of the robot, as known to gpioreg.
type Pins struct {
	Emitter    string    `yaml:"emitter"`
	Sensors    [8]string `yaml:"sensors"` // bit 0 first, the rightmost sensor.
	LeftDir    string    `yaml:"left_dir"`
	LeftSleep  string    `yaml:"left_sleep"`
	LeftPWM    string    `yaml:"left_pwm"`
	RightDir   string    `yaml:"right_dir"`
	RightSleep string    `yaml:"right_sleep"`
	RightPWM   string    `yaml:"right_pwm"`
	Bumps      [6]string `yaml:"bumps"`
}

// DefaultPins is the wiring of the Raspberry Pi carrier board.
var DefaultPins = Pins{
	Emitter:    "GPIO4",
	Sensors:    [8]string{"GPIO5", "GPIO6", "GPIO13", "GPIO19", "GPIO26", "GPIO16", "GPIO20", "GPIO21"},
	LeftDir:    "GPIO23",
	LeftSleep:  "GPIO24",
	LeftPWM:    "GPIO12",
	RightDir:   "GPIO22",
	RightSleep: "GPIO27",
	RightPWM:   "GPIO18",
	Bumps:      [6]string{"GPIO2", "GPIO3", "GPIO14", "GPIO15", "GPIO17", "GPIO25"},
}

// Robot groups the drivers built from Pins.
type Robot struct {
	*Reflectance
	*Motors
	*Bumper
}

// Open initializes the host drivers and resolves the pins.
func Open(pins Pins) (*Robot, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init error: %w", err)
	}
	var missing []string
	lookup := func(name string) gpio.PinIO {
		p := gpioreg.ByName(name)
		if p == nil {
			missing = append(missing, name)
		}
		return p
	}
	refl := &Reflectance{Emitter: lookup(pins.Emitter)}
	for n, name := range pins.Sensors {
		refl.Sensors[n] = lookup(name)
	}
	motors := &Motors{
		Left: Motor{
			Dir:   lookup(pins.LeftDir),
			Sleep: lookup(pins.LeftSleep),
			PWM:   lookup(pins.LeftPWM),
		},
		Right: Motor{
			Dir:   lookup(pins.RightDir),
			Sleep: lookup(pins.RightSleep),
			PWM:   lookup(pins.RightPWM),
		},
	}
	bumper := &Bumper{}
	for n, name := range pins.Bumps {
		bumper.Switches[n] = lookup(name)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unknown pins: %s", strings.Join(missing, ","))
	}
	if err := bumper.Init(); err != nil {
		return nil, err
	}
	if err := motors.Stop(); err != nil {
		return nil, err
	}
	return &Robot{Reflectance: refl, Motors: motors, Bumper: bumper}, nil
}
