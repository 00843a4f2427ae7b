package gpio

import (
	"fmt"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"

	"github.com/robotalks/linebot/pkg/drive"
)

// DefaultFrequency is the PWM frequency of the motor drivers.
const DefaultFrequency = 100 * physic.Hertz

// Motor is one DRV8838 style driver: Dir high turns the wheel backward,
// Sleep low puts the driver to sleep.
type Motor struct {
	Dir   gpio.PinOut
	Sleep gpio.PinOut
	PWM   gpio.PinOut
}

// Duty scales a drive duty to a periph duty.
func Duty(duty uint16) gpio.Duty {
	if duty > drive.DutyMax {
		duty = drive.DutyMax
	}
	return gpio.Duty(int64(duty) * int64(gpio.DutyMax) / int64(drive.DutyMax))
}

func (m *Motor) run(sign int, duty uint16, freq physic.Frequency) error {
	if sign == 0 || duty == 0 {
		return m.stop(freq)
	}
	dir := gpio.Low
	if sign < 0 {
		dir = gpio.High
	}
	if err := m.Dir.Out(dir); err != nil {
		return err
	}
	if err := m.Sleep.Out(gpio.High); err != nil {
		return err
	}
	return m.PWM.PWM(Duty(duty), freq)
}

func (m *Motor) stop(freq physic.Frequency) error {
	if err := m.PWM.PWM(0, freq); err != nil {
		return err
	}
	return m.Sleep.Out(gpio.Low)
}

// Motors drives both wheels. It implements drive.Actuator.
type Motors struct {
	Left      Motor
	Right     Motor
	Frequency physic.Frequency
}

func (m *Motors) frequency() physic.Frequency {
	if m.Frequency == 0 {
		return DefaultFrequency
	}
	return m.Frequency
}

// Apply implements drive.Actuator.
func (m *Motors) Apply(cmd drive.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	left, right := cmd.WheelSigns()
	if err := m.Left.run(left, cmd.Left, m.frequency()); err != nil {
		return fmt.Errorf("left motor error: %w", err)
	}
	if err := m.Right.run(right, cmd.Right, m.frequency()); err != nil {
		return fmt.Errorf("right motor error: %w", err)
	}
	return nil
}

// Stop implements drive.Actuator.
func (m *Motors) Stop() error {
	errL := m.Left.stop(m.frequency())
	errR := m.Right.stop(m.frequency())
	if errL != nil {
		return errL
	}
	return errR
}
