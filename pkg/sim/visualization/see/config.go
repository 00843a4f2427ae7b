package see

import (
	"flag"
	"math"

	"github.com/robotalks/linebot/pkg/sim/track"
)

// Config represents configuration for see.
type Config struct {
	Enabled bool
	W       float64
	H       float64
}

// Margin is added around the track when fitting the area.
const Margin float64 = 100

var defaultConfig = Config{
	W: 1000,
	H: 1000,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&defaultConfig.Enabled, "see", defaultConfig.Enabled, "Write visualization messages to stdout")
	flag.Float64Var(&defaultConfig.W, "see-w", defaultConfig.W, "Width (mm) of visualization area")
	flag.Float64Var(&defaultConfig.H, "see-h", defaultConfig.H, "Height (mm) of visualization area")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a default config.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Fit enlarges the area, centered on the origin, to cover the track.
func (c *Config) Fit(t *track.Track) *Config {
	b := t.Bounds()
	w := 2*math.Max(math.Abs(b.X), math.Abs(b.X+b.CX)) + 2*Margin
	h := 2*math.Max(math.Abs(b.Y), math.Abs(b.Y+b.CY)) + 2*Margin
	c.W, c.H = math.Max(c.W, w), math.Max(c.H, h)
	return c
}

// NewAdapter creates adapter from config.
func (c *Config) NewAdapter() *Adapter {
	return NewAdapter(c)
}
