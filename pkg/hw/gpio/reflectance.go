package gpio

import (
	"time"

	"periph.io/x/periph/conn/gpio"

	"github.com/robotalks/linebot/pkg/sensor"
)

// Reflectance timing defaults.
const (
	DefaultCharge = 10 * time.Microsecond
	DefaultDecay  = 1000 * time.Microsecond
)

// Reflectance reads the 8 channel QTR style array. Each sensor is a
// capacitor discharged by its phototransistor: after charging, a sensor
// over a dark line still reads high when Decay elapses.
type Reflectance struct {
	Emitter gpio.PinOut
	Sensors [8]gpio.PinIO
	Charge  time.Duration
	Decay   time.Duration
	// Sleep waits between the phases, time.Sleep when nil.
	Sleep func(time.Duration)
}

func (r *Reflectance) sleep(d time.Duration, def time.Duration) {
	if d == 0 {
		d = def
	}
	if fn := r.Sleep; fn != nil {
		fn(d)
	} else {
		time.Sleep(d)
	}
}

// Sample implements sensor.Source.
func (r *Reflectance) Sample() (sensor.Reading, error) {
	if err := r.Emitter.Out(gpio.High); err != nil {
		return 0, err
	}
	defer r.Emitter.Out(gpio.Low)
	for _, p := range r.Sensors {
		if err := p.Out(gpio.High); err != nil {
			return 0, err
		}
	}
	r.sleep(r.Charge, DefaultCharge)
	for _, p := range r.Sensors {
		if err := p.In(gpio.Float, gpio.NoEdge); err != nil {
			return 0, err
		}
	}
	r.sleep(r.Decay, DefaultDecay)
	var reading sensor.Reading
	for n, p := range r.Sensors {
		if p.Read() == gpio.High {
			reading |= 1 << uint(n)
		}
	}
	return reading, nil
}
