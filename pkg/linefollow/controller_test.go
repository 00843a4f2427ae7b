package linefollow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/linebot/pkg/bump"
	"github.com/robotalks/linebot/pkg/drive"
	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1"
	"github.com/robotalks/linebot/pkg/l1/msgs"
	lfmsgs "github.com/robotalks/linebot/pkg/linefollow/msgs"
	"github.com/robotalks/linebot/pkg/recovery"
	"github.com/robotalks/linebot/pkg/sensor"
	"github.com/robotalks/linebot/pkg/steering"
)

// trace records the order of samples and commands.
type trace struct {
	lock    sync.Mutex
	entries []string
}

func (t *trace) add(format string, args ...interface{}) {
	t.lock.Lock()
	t.entries = append(t.entries, fmt.Sprintf(format, args...))
	t.lock.Unlock()
}

type scriptSource struct {
	trace    *trace
	readings []sensor.Reading
	samples  int
	err      error
}

func (s *scriptSource) Sample() (sensor.Reading, error) {
	if s.err != nil {
		return 0, s.err
	}
	n := s.samples
	if n >= len(s.readings) {
		n = len(s.readings) - 1
	}
	s.samples++
	r := s.readings[n]
	if s.trace != nil {
		s.trace.add("sample %v", r)
	}
	return r, nil
}

type tracedActuator struct {
	drive.Recorder
	trace *trace
}

func (a *tracedActuator) Apply(cmd drive.Command) error {
	a.trace.add("apply %v", cmd)
	return a.Recorder.Apply(cmd)
}

type nopSwitches struct{}

func (nopSwitches) Read() (bump.Mask, error) { return 0, nil }

func (nopSwitches) Watch(ctx context.Context, fn func(bump.Mask)) error {
	fn(0)
	<-ctx.Done()
	return ctx.Err()
}

type eventSink struct {
	events []fx.Message
}

func (s *eventSink) SendEvent(ctx context.Context, msg fx.Message) error {
	s.events = append(s.events, msg)
	return nil
}

type testCommand struct {
	msg   fx.Message
	reply fx.Message
}

func (c *testCommand) Msg() fx.Message { return c.msg }

func (c *testCommand) Done(reply fx.Message) error {
	c.reply = reply
	return nil
}

type fixture struct {
	ctl    *Controller
	loop   *fx.Loop
	rec    *drive.Recorder
	source *scriptSource
}

func newFixture(t *testing.T, variant string, opts Options, readings ...sensor.Reading) *fixture {
	tbl := steering.Variants[variant]
	q, err := sensor.ForWidth(tbl.Width())
	require.NoError(t, err)
	f := &fixture{loop: fx.NewLoop(), source: &scriptSource{readings: readings}}
	opts.Table, opts.Quantizer, opts.Source = tbl, q, f.source
	if opts.Actuator == nil {
		f.rec = &drive.Recorder{}
		opts.Actuator = f.rec
	}
	f.ctl, err = New(opts)
	require.NoError(t, err)
	f.ctl.AddToLoop(f.loop)
	return f
}

func (f *fixture) tick(n int) {
	for i := 0; i < n; i++ {
		f.loop.Tick(context.Background())
	}
}

func (f *fixture) state() string {
	return f.ctl.Status().State
}

func TestNewValidates(t *testing.T) {
	tbl := steering.Variants["lost6"]
	src := sensor.SourceFunc(func() (sensor.Reading, error) { return 0, nil })
	cases := []struct {
		name string
		opts Options
	}{
		{"no-table", Options{Quantizer: sensor.Six, Source: src, Actuator: &drive.Recorder{}}},
		{"width", Options{Table: tbl, Quantizer: sensor.Four, Source: src, Actuator: &drive.Recorder{}}},
		{"quantizer", Options{Table: tbl, Source: src, Actuator: &drive.Recorder{}}},
		{"no-source", Options{Table: tbl, Quantizer: sensor.Six, Actuator: &drive.Recorder{}}},
		{"no-actuator", Options{Table: tbl, Quantizer: sensor.Six, Source: src}},
		{"threshold", Options{Table: tbl, Quantizer: sensor.Six, Source: src, Actuator: &drive.Recorder{},
			Recovery: &recovery.Policy{Threshold: 5}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(c.opts)
			require.Error(t, err)
		})
	}
}

func TestDriftRightCommandBeforeRead(t *testing.T) {
	tr := &trace{}
	act := &tracedActuator{trace: tr}
	f := newFixture(t, "lost6", Options{Actuator: act}, 0x10, 0x20, 0x80, 0x18)
	f.source.trace = tr
	tbl := f.ctl.Table()
	cmdOf := func(name string) drive.Command {
		id, err := tbl.Lookup(name)
		require.NoError(t, err)
		return tbl.State(id).Command
	}

	var states []string
	for i := 0; i < 5; i++ {
		f.tick(1)
		states = append(states, f.state())
	}
	require.Equal(t, []string{"Center", "Right1", "Right2", "Right3", "Center"}, states)
	require.Equal(t, []string{
		fmt.Sprintf("apply %v", cmdOf("Center")),
		"sample 00010000",
		fmt.Sprintf("apply %v", cmdOf("Right1")),
		"sample 00100000",
		fmt.Sprintf("apply %v", cmdOf("Right2")),
		"sample 10000000",
		fmt.Sprintf("apply %v", cmdOf("Right3")),
		"sample 00011000",
		fmt.Sprintf("apply %v", cmdOf("Center")),
	}, tr.entries)
	require.Equal(t, uint64(5), f.ctl.Status().Ticks)
}

func TestRecoveryFiresOnce(t *testing.T) {
	policy := recovery.DefaultPolicy()
	policy.PulseTicks = 3
	f := newFixture(t, "race6", Options{Recovery: policy}, 0x18, 0, 0, 0, 0x18)
	// tick 1 actuates, ticks 2-5 sample Center, Error, Error, Error.
	f.tick(5)
	status := f.ctl.Status()
	require.Equal(t, 1, status.Recoveries)
	require.True(t, status.Recovering)
	last, _ := f.rec.Last()
	require.Equal(t, policy.Pulse, last)
	samples := f.source.samples

	// the pulse is held without sensing.
	f.tick(2)
	require.Equal(t, samples, f.source.samples)
	require.False(t, f.ctl.Status().Recovering)
	// then the current state is applied again before the next sample.
	f.tick(1)
	require.Equal(t, samples, f.source.samples)
	last, _ = f.rec.Last()
	require.Equal(t, f.ctl.Table().State(f.ctl.Table().Error()).Command, last)

	f.tick(20)
	require.Equal(t, "Center", f.state())
	require.Equal(t, 1, f.ctl.Status().Recoveries)
	pulses := 0
	for _, cmd := range f.rec.Snapshot() {
		if cmd == policy.Pulse {
			pulses++
		}
	}
	require.Equal(t, 1, pulses)
}

func TestRecoveryDisabled(t *testing.T) {
	f := newFixture(t, "race6", Options{}, 0)
	f.tick(10)
	require.Equal(t, "Error", f.state())
	require.Equal(t, 0, f.ctl.Status().Recoveries)
}

func TestBumpOverride(t *testing.T) {
	events := &eventSink{}
	f := newFixture(t, "lost6", Options{Switches: nopSwitches{}, Events: events}, 0x18)
	f.tick(2)
	require.Equal(t, "Center", f.state())
	applied := len(f.rec.Snapshot())
	samples := f.source.samples

	f.ctl.Monitor().Changed(0x04)
	require.Equal(t, 1, f.rec.Stops)
	f.tick(10)
	status := f.ctl.Status()
	require.Equal(t, "Stop", status.State)
	require.True(t, status.Collision)
	require.Equal(t, bump.Mask(0x04), status.Switches)
	require.Len(t, f.rec.Snapshot(), applied)
	require.Equal(t, samples, f.source.samples)
	require.Len(t, events.events, 1)
	require.Equal(t, &lfmsgs.Collision{Switches: 0x04, Tick: 3}, events.events[0])

	require.Equal(t, ErrSwitchesPressed, f.ctl.ResetCollision(false))
	f.ctl.Monitor().Changed(0)
	f.tick(5)
	require.Equal(t, "Stop", f.state())

	require.NoError(t, f.ctl.ResetCollision(false))
	f.tick(1)
	require.Equal(t, "Center", f.state())
	require.Equal(t, samples, f.source.samples)
	require.Len(t, f.rec.Snapshot(), applied+1)
	f.tick(1)
	require.Equal(t, samples+1, f.source.samples)
	require.False(t, f.ctl.Status().Collision)
}

func TestBumpAutoClear(t *testing.T) {
	f := newFixture(t, "lost6", Options{
		Switches: nopSwitches{},
		Clear:    bump.Policy{Mode: bump.Auto, ResumeTicks: 3},
	}, 0x18)
	f.tick(2)
	f.ctl.Monitor().Changed(0x01)
	f.tick(5)
	require.Equal(t, "Stop", f.state())
	f.ctl.Monitor().Changed(0)
	f.tick(2)
	require.Equal(t, "Stop", f.state())
	f.tick(1)
	require.Equal(t, "Center", f.state())
	require.False(t, f.ctl.Status().Collision)
}

func TestOverrideDuringPulse(t *testing.T) {
	f := newFixture(t, "race6", Options{Recovery: recovery.DefaultPolicy()}, 0)
	f.tick(4)
	require.True(t, f.ctl.Status().Recovering)
	require.NoError(t, f.ctl.Trip())
	f.tick(1)
	status := f.ctl.Status()
	require.False(t, status.Recovering)
	require.Equal(t, "Stop", status.State)
}

func TestCommands(t *testing.T) {
	f := newFixture(t, "lost6", Options{}, 0x18)
	f.tick(2)

	query := &testCommand{msg: &lfmsgs.StatusQuery{}}
	f.loop.PostMessage(&l1.CommandMsg{Command: query})
	f.tick(1)
	status, ok := query.reply.(*lfmsgs.Status)
	require.True(t, ok)
	require.Equal(t, "lost6", status.Table)
	require.Equal(t, "Center", status.State)
	require.Equal(t, "forward", status.Direction)
	require.True(t, status.PositionValid)

	halt := &testCommand{msg: &lfmsgs.Halt{}}
	f.loop.PostMessage(&l1.CommandMsg{Command: halt})
	f.tick(2)
	require.IsType(t, &msgs.CommandOK{}, halt.reply)
	require.Equal(t, "Stop", f.state())

	reset := &testCommand{msg: &lfmsgs.ResetCollision{}}
	f.loop.PostMessage(&l1.CommandMsg{Command: reset})
	f.tick(2)
	require.IsType(t, &msgs.CommandOK{}, reset.reply)
	require.Equal(t, "Center", f.state())

	// commands of other controllers are left alone.
	other := &testCommand{msg: &msgs.CommandOK{}}
	f.loop.PostMessage(&l1.CommandMsg{Command: other})
	f.tick(1)
	require.Nil(t, other.reply)
}

func TestSampleErrorKeepsState(t *testing.T) {
	f := newFixture(t, "lost6", Options{}, 0x10)
	f.tick(2)
	require.Equal(t, "Right1", f.state())
	f.source.err = errors.New("sensor unplugged")
	f.tick(3)
	require.Equal(t, "Right1", f.state())
	last, _ := f.rec.Last()
	require.Equal(t, drive.Forward, last.Direction)
}

func TestStateEventsAndIndicator(t *testing.T) {
	events := &eventSink{}
	f := newFixture(t, "color4", Options{Events: events}, 0x08, 0x08, 0x18)
	f.tick(4)
	require.Equal(t, "Center", f.state())
	require.Len(t, events.events, 2)
	require.Equal(t, &lfmsgs.StateChanged{From: "Center", To: "Left1", Symbol: 0x2, Tick: 2}, events.events[0])
	require.Equal(t, &lfmsgs.StateChanged{From: "Left1", To: "Center", Symbol: 0x6, Tick: 4}, events.events[1])
	require.Equal(t, []drive.Color{drive.Yellow, drive.Green, drive.Yellow}, f.rec.Indicators)
}

func TestStopMotorsOnShutdown(t *testing.T) {
	f := newFixture(t, "lost6", Options{}, 0x18)
	f.loop.Interval = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Equal(t, context.DeadlineExceeded, f.loop.Run(ctx))
	require.Equal(t, 1, f.rec.Stops)
}

type statusSink struct {
	published []fx.Message
	err       error
}

func (s *statusSink) PublishStatus(msg fx.Message) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, msg)
	return nil
}

func TestStatusPublisher(t *testing.T) {
	f := newFixture(t, "lost6", Options{}, 0x18, 0x18, 0x18, 0x10)
	sink := &statusSink{}
	pub := &StatusPublisher{Controller: f.ctl, Sink: sink}
	f.tick(2)
	require.True(t, pub.Publish())
	f.tick(1)
	require.False(t, pub.Publish(), "only ticks changed")
	f.tick(2)
	require.True(t, pub.Publish())
	require.Len(t, sink.published, 2)
	require.Equal(t, "Right1", sink.published[1].(*lfmsgs.Status).State)

	sink.err = errors.New("broker gone")
	f.loop.PostMessage(&l1.CommandMsg{Command: &testCommand{msg: &lfmsgs.Halt{}}})
	f.tick(2)
	require.False(t, pub.Publish())
	sink.err = nil
	require.True(t, pub.Publish())
	require.True(t, sink.published[2].(*lfmsgs.Status).Collision)
}
