// Package linefollow provides the shell commands of the line follower.
package linefollow

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/linebot/pkg/bump"
	"github.com/robotalks/linebot/pkg/cli/sh"
	lfmsgs "github.com/robotalks/linebot/pkg/linefollow/msgs"
)

// FormatStatus prints the status for display.
func FormatStatus(st *lfmsgs.Status) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "table:     %s\n", st.Table)
	fmt.Fprintf(&w, "state:     %s (symbol %d)\n", st.State, st.Symbol)
	fmt.Fprintf(&w, "sensors:   %08b", st.Raw)
	if st.PositionValid {
		fmt.Fprintf(&w, " position %.1fmm", float64(st.Position)/1000)
	} else {
		fmt.Fprint(&w, " no line")
	}
	fmt.Fprintln(&w)
	fmt.Fprintf(&w, "drive:     %s(%d,%d)\n", st.Direction, st.Left, st.Right)
	if st.Collision {
		fmt.Fprintf(&w, "collision: switches %v\n", bump.Mask(st.Switches).Pressed())
	}
	if st.Recovering {
		fmt.Fprintln(&w, "recovering")
	}
	fmt.Fprintf(&w, "ticks:     %d, recoveries %d", st.Ticks, st.Recoveries)
	return w.String()
}

const defaultRepeats = 10

func printStatus(c *ishell.Context) error {
	reply, err := sh.Call(c, &lfmsgs.StatusQuery{})
	if err != nil {
		return err
	}
	st, ok := reply.(*lfmsgs.Status)
	if !ok || sh.ShellFrom(c).OutputJSON {
		return sh.ShellFrom(c).Print(c, reply)
	}
	c.Println(FormatStatus(st))
	return nil
}

var (
	// StatusCmd queries the controller status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "[INTERVAL [COUNT]] repeats COUNT times, 10 by default",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				if err := printStatus(c); err != nil {
					c.Err(err)
				}
				return
			}
			interval, err := time.ParseDuration(c.Args[0])
			if err != nil || interval <= 0 {
				c.Err(fmt.Errorf("invalid INTERVAL %q", c.Args[0]))
				return
			}
			count := defaultRepeats
			if len(c.Args) > 1 {
				if count, err = strconv.Atoi(c.Args[1]); err != nil || count <= 0 {
					c.Err(fmt.Errorf("invalid COUNT %q", c.Args[1]))
					return
				}
			}
			for n := 0; n < count; n++ {
				if n > 0 {
					time.Sleep(interval)
				}
				if err := printStatus(c); err != nil {
					c.Err(err)
					return
				}
			}
		}),
	}

	// ResetCmd clears the collision override.
	ResetCmd = ishell.Cmd{
		Name:    "reset",
		Aliases: []string{"r"},
		Help:    "[force] clears the collision, force ignores pressed switches",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			msg := &lfmsgs.ResetCollision{}
			if len(c.Args) > 0 {
				if c.Args[0] != "force" {
					c.Err(fmt.Errorf("unknown argument %q", c.Args[0]))
					return
				}
				msg.Force = true
			}
			sh.DoCommand(c, msg)
		}),
	}

	// HaltCmd stops the robot like a collision.
	HaltCmd = ishell.Cmd{
		Name:    "halt",
		Aliases: []string{"h"},
		Help:    "stops the robot until reset",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &lfmsgs.Halt{})
		}),
	}
)

func init() {
	sh.AddCmds(
		&StatusCmd,
		&ResetCmd,
		&HaltCmd,
	)
}
