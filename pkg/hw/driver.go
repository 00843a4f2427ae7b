// Package hw selects and opens the hardware driver of the robot.
package hw

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v2"

	"github.com/robotalks/linebot/pkg/bump"
	"github.com/robotalks/linebot/pkg/drive"
	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/hw/firmware"
	"github.com/robotalks/linebot/pkg/hw/gpio"
	"github.com/robotalks/linebot/pkg/sensor"
)

// Drivers
const (
	DriverFirmware = "firmware"
	DriverGPIO     = "gpio"
)

// Config selects the driver.
type Config struct {
	Driver   string
	Firmware firmware.Config
	// PinsFile is a YAML file overriding gpio.DefaultPins.
	PinsFile string
	Decay    time.Duration
}

var defaultConfig = Config{
	Driver: DriverFirmware,
	Firmware: firmware.Config{
		Port:    firmware.DefaultPort,
		Baud:    firmware.DefaultBaud,
		Timeout: firmware.DefaultTimeout,
	},
	Decay: gpio.DefaultDecay,
}

func init() {
	if val := os.Getenv("LINEBOT_DRIVER"); val != "" {
		defaultConfig.Driver = val
	}
	if val := os.Getenv("LINEBOT_PORT"); val != "" {
		defaultConfig.Firmware.Port = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Driver, "driver", defaultConfig.Driver, "Hardware driver: firmware or gpio")
	flag.StringVar(&defaultConfig.Firmware.Port, "port", defaultConfig.Firmware.Port, "Serial port of the firmware")
	flag.IntVar(&defaultConfig.Firmware.Baud, "baud", defaultConfig.Firmware.Baud, "Baud rate of the firmware")
	flag.DurationVar(&defaultConfig.Firmware.Timeout, "fw-timeout", defaultConfig.Firmware.Timeout, "Firmware command timeout")
	flag.StringVar(&defaultConfig.PinsFile, "pins", defaultConfig.PinsFile, "YAML file of GPIO pin names")
	flag.DurationVar(&defaultConfig.Decay, "decay", defaultConfig.Decay, "Reflectance decay time of the GPIO driver")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Driver is an opened robot.
type Driver struct {
	Name     string
	Source   sensor.Source
	Actuator drive.Actuator
	Switches bump.Switches

	runnables []fx.Runnable
	closer    io.Closer
}

// Open opens the configured driver.
func (c *Config) Open() (*Driver, error) {
	switch c.Driver {
	case DriverFirmware:
		b, err := firmware.Open(c.Firmware)
		if err != nil {
			return nil, err
		}
		return FirmwareDriver(b), nil
	case DriverGPIO:
		pins, err := LoadPins(c.PinsFile)
		if err != nil {
			return nil, err
		}
		r, err := gpio.Open(pins)
		if err != nil {
			return nil, err
		}
		r.Reflectance.Decay = c.Decay
		return GPIODriver(r), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", c.Driver)
	}
}

// FirmwareDriver wraps a Board. The link stays up until the motors are
// stopped on shutdown.
func FirmwareDriver(b *firmware.Board) *Driver {
	return &Driver{
		Name:      DriverFirmware,
		Source:    b,
		Actuator:  b,
		Switches:  b,
		runnables: []fx.Runnable{fx.NamedRun("firmware", fx.RunFunc(func(ctx context.Context) error { return runLink(ctx, b) }))},
		closer:    b,
	}
}

func runLink(ctx context.Context, b *firmware.Board) error {
	linkCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Run(linkCtx)
	}()
	go func() {
		if err := b.WaitReady(ctx); err == nil {
			glog.Info("firmware link ready")
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if err := b.Stop(); err != nil {
		glog.Warningf("stop motors error: %v", err)
	}
	cancel()
	<-errCh
	return ctx.Err()
}

// GPIODriver wraps the GPIO drivers.
func GPIODriver(r *gpio.Robot) *Driver {
	return &Driver{
		Name:     DriverGPIO,
		Source:   r.Reflectance,
		Actuator: r.Motors,
		Switches: r.Bumper,
	}
}

// LoadPins reads pin names from a YAML file over gpio.DefaultPins. An
// empty file name returns the defaults.
func LoadPins(fn string) (gpio.Pins, error) {
	pins := gpio.DefaultPins
	if fn == "" {
		return pins, nil
	}
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return pins, err
	}
	if err := yaml.UnmarshalStrict(data, &pins); err != nil {
		return pins, fmt.Errorf("%s: %v", fn, err)
	}
	return pins, nil
}

// AddToLoop implements LoopAdder.
func (d *Driver) AddToLoop(l *fx.Loop) {
	l.AddRunnable(d.runnables...)
	l.AddFinalizer(d.Close)
}

// Close releases the driver.
func (d *Driver) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
