package linefollow

import (
	"context"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/linebot/pkg/framework"
	lfmsgs "github.com/robotalks/linebot/pkg/linefollow/msgs"
)

// DefaultPublishInterval is how often StatusPublisher checks the status.
const DefaultPublishInterval = 500 * time.Millisecond

// StatusSink receives status snapshots, like the retained MQTT status topic.
type StatusSink interface {
	PublishStatus(fx.Message) error
}

// StatusPublisher publishes the status of a Controller when it changes,
// outside the control loop so a slow sink never delays a tick.
type StatusPublisher struct {
	Controller *Controller
	Sink       StatusSink
	Interval   time.Duration

	last *lfmsgs.Status
}

// Run implements Runnable.
func (p *StatusPublisher) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPublishInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Publish()
		}
	}
}

// Publish sends the status if anything other than the tick count changed.
// It reports whether the status was sent.
func (p *StatusPublisher) Publish() bool {
	st := p.Controller.StatusMsg()
	cmp := *st
	cmp.Ticks = 0
	if p.last != nil && *p.last == cmp {
		return false
	}
	if err := p.Sink.PublishStatus(st); err != nil {
		glog.Warningf("publish status error: %v", err)
		return false
	}
	p.last = &cmp
	return true
}
