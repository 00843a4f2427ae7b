// Package see is the adapter to visualize a 2D world in
// github.com/robotalks/see.
package see

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/sim"
	"github.com/robotalks/linebot/pkg/sim/track"
)

// Adapter is the visualization adapter to visualize using
// github.com/robotalks/see.
type Adapter struct {
	Config *Config
	Mapper ObjectMapper
	// Track is drawn once when set.
	Track *track.Track

	// Output receives the messages, os.Stdout by default.
	Output io.Writer

	initial    bool
	updated    map[string]sim.Object
	removedIDs map[string]bool
}

// NewAdapter creates the adapter.
func NewAdapter(config *Config) *Adapter {
	return &Adapter{
		Config:  config,
		initial: true,
	}
}

// Subscribe is a helper to subscribe object changes.
func (a *Adapter) Subscribe(sub sim.ObjectsChangeSubscriber) *Adapter {
	sub.SubscribeObjectsChange(a)
	return a
}

// ObjectsChanged implements ObjectsChangeListener.
func (a *Adapter) ObjectsChanged(cc fx.ControlContext, objs ...sim.Object) {
	if a.updated == nil {
		a.updated = make(map[string]sim.Object)
	}
	for _, obj := range objs {
		a.updated[obj.Name()] = obj
		if a.removedIDs != nil {
			delete(a.removedIDs, obj.Name())
		}
	}
}

// ObjectsRemoved implements ObjectsChangeListener.
func (a *Adapter) ObjectsRemoved(cc fx.ControlContext, objs ...sim.Object) {
	if a.removedIDs == nil {
		a.removedIDs = make(map[string]bool)
	}
	for _, obj := range objs {
		a.removedIDs[obj.Name()] = true
		if a.updated != nil {
			delete(a.updated, obj.Name())
		}
	}
}

// AddToLoop implements LoopAdder.
func (a *Adapter) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvPostProc, fx.ControlFunc(a.ReportChanges))
}

// ReportChanges is a controller to report changes.
func (a *Adapter) ReportChanges(cc fx.ControlContext) error {
	var msgs []Message
	if a.initial {
		msgs = append([]Message{{Action: ActionReset}}, a.cornerMessages()...)
		msgs = append(msgs, a.trackMessages()...)
		a.initial = false
		a.removedIDs = nil
	}

	for _, obj := range a.updated {
		if vo, ok := obj.(VisibleObject); ok {
			for _, mapped := range a.Mapper.MapObject(vo) {
				if mapped == nil {
					continue
				}
				msgs = append(msgs, Message{
					Action: ActionObject,
					Object: mapped,
				})
			}
		}
	}

	for id := range a.removedIDs {
		msgs = append(msgs, Message{
			Action:   ActionRemove,
			RemoveID: ObjectID(id),
		})
	}

	a.updated, a.removedIDs = nil, nil
	if len(msgs) > 0 {
		encoded, err := json.Marshal(msgs)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out(), string(encoded)+"\n")
	}
	return nil
}

func (a *Adapter) out() io.Writer {
	if a.Output != nil {
		return a.Output
	}
	return os.Stdout
}

// cornerMessages pins the view box with invisible corner markers.
func (a *Adapter) cornerMessages() []Message {
	w, h := a.Config.W/2, a.Config.H/2
	corners := []struct {
		loc  string
		x, y float64
	}{
		{"lt", -w, -h}, {"lb", -w, h}, {"rt", w, -h}, {"rb", w, h},
	}
	msgs := make([]Message, 0, len(corners))
	for _, c := range corners {
		msgs = append(msgs, Message{
			Action: ActionObject,
			Object: NewObject("corner", "corner-"+c.loc).With("loc", c.loc).At(c.x, c.y).Radius(1),
		})
	}
	return msgs
}

func (a *Adapter) trackMessages() []Message {
	t := a.Track
	if t == nil {
		return nil
	}
	pts := make([]sim.Pos2D, 0, len(t.Points)+1)
	for _, p := range t.Points {
		pts = append(pts, p.Pos())
	}
	if t.Closed {
		pts = append(pts, pts[0])
	}
	msgs := []Message{{
		Action: ActionObject,
		Object: PathObject(ObjectID("track/"+t.Name), t.Width, pts...),
	}}
	for n, o := range t.Obstacles {
		name := o.Name
		if name == "" {
			name = fmt.Sprintf("obstacle%d", n)
		}
		msgs = append(msgs, Message{
			Action: ActionObject,
			Object: NewObject("rect", ObjectID("obstacle/"+name)).Rc(o.X, o.Y, o.W, o.H),
		})
	}
	return msgs
}
