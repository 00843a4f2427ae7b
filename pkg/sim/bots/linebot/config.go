package linebot

import (
	"flag"
	"fmt"

	"github.com/robotalks/linebot/pkg/sim/physics/diffdrive"
	"github.com/robotalks/linebot/pkg/sim/track"
)

// Config defines the configuration for the bot.
type Config struct {
	Track       string
	Size        float64
	WheelBase   float64
	SpeedMax    float64
	ArrayOffset float64
}

// Defaults
const (
	DefaultTrack               = "oval"
	DefaultSize        float64 = 150
	DefaultArrayOffset float64 = 60
)

var defaultConfig = Config{
	Track:       DefaultTrack,
	Size:        DefaultSize,
	WheelBase:   diffdrive.DefaultWheelBase,
	SpeedMax:    diffdrive.DefaultSpeedMax,
	ArrayOffset: DefaultArrayOffset,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Track, "track", defaultConfig.Track, fmt.Sprintf("Track, one of %v or a YAML file", track.Names()))
	flag.Float64Var(&defaultConfig.Size, "bot-size", defaultConfig.Size, "Size (mm) of the bot, it's square.")
	flag.Float64Var(&defaultConfig.WheelBase, "wheel-base", defaultConfig.WheelBase, "Distance (mm) between the wheels.")
	flag.Float64Var(&defaultConfig.SpeedMax, "speed-max", defaultConfig.SpeedMax, "Wheel speed (mm/s) at full duty.")
	flag.Float64Var(&defaultConfig.ArrayOffset, "array-offset", defaultConfig.ArrayOffset, "Distance (mm) of the sensor array ahead of the wheels.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates the default configuration.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewBot creates the Bot on the configured track.
func (c *Config) NewBot(name string) (*Bot, error) {
	if c.Size <= 0 || c.WheelBase <= 0 || c.SpeedMax <= 0 {
		return nil, fmt.Errorf("bot size, wheel base and speed must be positive")
	}
	t, err := track.Load(c.Track)
	if err != nil {
		return nil, fmt.Errorf("load track error: %v", err)
	}
	b := New(name, t)
	b.SetSize(c.Size)
	b.ArrayOffset = c.ArrayOffset
	b.engine.WheelBase = c.WheelBase
	b.engine.SpeedMax = c.SpeedMax
	return b, nil
}
