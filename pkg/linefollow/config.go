package linefollow

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/linebot/pkg/bump"
	"github.com/robotalks/linebot/pkg/drive"
	"github.com/robotalks/linebot/pkg/recovery"
	"github.com/robotalks/linebot/pkg/sensor"
	"github.com/robotalks/linebot/pkg/steering"
)

// Config is the command line configuration of a line follower.
type Config struct {
	// Table is a built-in variant name or a YAML file.
	Table string
	// Quantizer is a built-in quantizer name, by default the one matching
	// the table width.
	Quantizer string
	ActiveLow bool
	Interval  time.Duration

	Recovery   bool
	PulseTicks int
	PulseDuty  uint

	ClearMode   string
	ResumeTicks int

	// SaveTable writes the table in use to the file.
	SaveTable string
}

var defaultConfig = Config{
	Table:       steering.DefaultVariant,
	Interval:    10 * time.Millisecond,
	Recovery:    true,
	PulseTicks:  recovery.DefaultPolicy().PulseTicks,
	PulseDuty:   recovery.DefaultPulseDuty,
	ClearMode:   bump.Manual.String(),
	ResumeTicks: bump.DefaultResumeTicks,
}

func init() {
	if val := os.Getenv("LINEBOT_TABLE"); val != "" {
		defaultConfig.Table = val
	}
	if val := os.Getenv("LINEBOT_CLEAR"); val != "" {
		defaultConfig.ClearMode = val
	}
	if val := os.Getenv("LINEBOT_ACTIVE_LOW"); val != "" {
		defaultConfig.ActiveLow, _ = strconv.ParseBool(val)
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Table, "table", defaultConfig.Table, fmt.Sprintf("Steering table, one of %v or a YAML file", steering.VariantNames()))
	flag.StringVar(&defaultConfig.Quantizer, "quantizer", defaultConfig.Quantizer, "Sensor quantizer: six, five, four, centerpair")
	flag.BoolVar(&defaultConfig.ActiveLow, "active-low", defaultConfig.ActiveLow, "Sensors read low on the line")
	flag.DurationVar(&defaultConfig.Interval, "tick", defaultConfig.Interval, "Control tick")
	flag.BoolVar(&defaultConfig.Recovery, "recovery", defaultConfig.Recovery, "Enable recovery pulse when stuck in error")
	flag.IntVar(&defaultConfig.PulseTicks, "recovery-ticks", defaultConfig.PulseTicks, "Recovery pulse duration in ticks")
	flag.UintVar(&defaultConfig.PulseDuty, "recovery-duty", defaultConfig.PulseDuty, "Recovery pulse duty")
	flag.StringVar(&defaultConfig.ClearMode, "clear", defaultConfig.ClearMode, "Collision clearing: manual or auto")
	flag.IntVar(&defaultConfig.ResumeTicks, "resume-ticks", defaultConfig.ResumeTicks, "Released ticks before auto clearing")
	flag.StringVar(&defaultConfig.SaveTable, "save-table", defaultConfig.SaveTable, "Write the steering table in use to this file")
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

// Options resolves the table and policies. Source, Actuator, Switches and
// Events are left for the caller.
func (c *Config) Options() (Options, error) {
	var opts Options
	tbl, err := steering.Load(c.Table)
	if err != nil {
		return opts, err
	}
	opts.Table = tbl
	if c.Quantizer == "" {
		opts.Quantizer, err = sensor.ForWidth(tbl.Width())
		if err != nil {
			return opts, err
		}
	} else {
		q, ok := sensor.ByName(c.Quantizer)
		if !ok {
			return opts, fmt.Errorf("unknown quantizer %q", c.Quantizer)
		}
		opts.Quantizer = q
	}
	opts.Quantizer.ActiveLow = c.ActiveLow
	if c.Recovery {
		if c.PulseDuty > uint(drive.DutyMax) {
			return opts, fmt.Errorf("recovery duty %d exceeds %d", c.PulseDuty, drive.DutyMax)
		}
		opts.Recovery = recovery.DefaultPolicy()
		opts.Recovery.PulseTicks = c.PulseTicks
		opts.Recovery.Pulse.Left = uint16(c.PulseDuty)
		opts.Recovery.Pulse.Right = uint16(c.PulseDuty)
	}
	if opts.Clear.Mode, err = bump.ParseClearMode(c.ClearMode); err != nil {
		return opts, err
	}
	opts.Clear.ResumeTicks = c.ResumeTicks
	if c.SaveTable != "" {
		if err := steering.SaveFile(tbl, c.SaveTable); err != nil {
			return opts, fmt.Errorf("save table error: %v", err)
		}
		glog.Infof("table %s saved to %s", tbl.Name(), c.SaveTable)
	}
	return opts, nil
}

// MustOptions resolves Options and fails on error.
func (c *Config) MustOptions() Options {
	opts, err := c.Options()
	if err != nil {
		glog.Exit(err)
	}
	return opts
}
