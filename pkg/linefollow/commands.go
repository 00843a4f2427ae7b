package linefollow

import (
	"context"
	"errors"

	"github.com/golang/glog"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1"
	"github.com/robotalks/linebot/pkg/l1/msgs"
	lfmsgs "github.com/robotalks/linebot/pkg/linefollow/msgs"
)

// ErrSwitchesPressed is returned when resetting a collision while a bump
// switch is still pressed.
var ErrSwitchesPressed = errors.New("bump switches still pressed")

// HandleCommands processes the L1 commands of this iteration.
func (c *Controller) HandleCommands(cc fx.ControlContext) {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		cmdMsg, ok := mc.CurrentMessage().(*l1.CommandMsg)
		if !ok {
			return
		}
		var reply fx.Message
		switch m := cmdMsg.Command.Msg().(type) {
		case *lfmsgs.StatusQuery:
			reply = c.StatusMsg()
		case *lfmsgs.ResetCollision:
			reply = replyOf(c.ResetCollision(m.Force))
		case *lfmsgs.Halt:
			reply = replyOf(c.Trip())
		default:
			return
		}
		mc.MessageTaken()
		if err := cmdMsg.Command.Done(reply); err != nil {
			glog.Errorf("reply command error: %v", err)
		}
	}))
}

func replyOf(err error) fx.Message {
	if err != nil {
		return msgs.NewCommandErr(err)
	}
	return msgs.NewCommandOK()
}

// ResetCollision clears the collision override. Unless force is set it
// refuses while a switch is still pressed. The loop resumes at the initial
// state on the next tick.
func (c *Controller) ResetCollision(force bool) error {
	if !c.flag.IsSet() {
		return nil
	}
	if !force && !c.released() {
		return ErrSwitchesPressed
	}
	glog.Info("collision reset")
	c.guard.Clear()
	return nil
}

// StatusMsg converts the status into the L1 reply.
func (c *Controller) StatusMsg() *lfmsgs.Status {
	s := c.Status()
	return &lfmsgs.Status{
		Table:         s.Table,
		State:         s.State,
		Symbol:        uint32(s.Symbol),
		Raw:           uint32(s.Raw),
		Position:      s.Position,
		PositionValid: s.PositionValid,
		Collision:     s.Collision,
		Switches:      uint32(s.Switches),
		Ticks:         s.Ticks,
		Recoveries:    uint32(s.Recoveries),
		Recovering:    s.Recovering,
		Direction:     s.Command.Direction.String(),
		Left:          uint32(s.Command.Left),
		Right:         uint32(s.Command.Right),
	}
}

func (c *Controller) sendEvent(msg fx.Message) {
	if c.events != nil {
		c.pending = append(c.pending, msg)
	}
}

func (c *Controller) flushEvents(ctx context.Context) error {
	if len(c.pending) == 0 {
		return nil
	}
	var errs fx.AggregatedError
	for _, msg := range c.pending {
		errs.Add(c.events.SendEvent(ctx, msg))
	}
	c.pending = c.pending[:0]
	return errs.Aggregate()
}
