package sim

import (
	fx "github.com/robotalks/linebot/pkg/framework"
)

// Object is anything placed on the track, the robot or an obstacle.
type Object interface {
	fx.Named
}

// ObjectsChangeListener listens for object changes.
type ObjectsChangeListener interface {
	ObjectsChanged(fx.ControlContext, ...Object)
	ObjectsRemoved(fx.ControlContext, ...Object)
}

// ObjectsChangeSubscriber subscribes objects change notifications.
type ObjectsChangeSubscriber interface {
	SubscribeObjectsChange(ObjectsChangeListener)
}

// ObjectsChangeCaster fans change notifications out to all subscribed
// listeners. It is meant to be embedded by objects which move.
type ObjectsChangeCaster struct {
	listeners []ObjectsChangeListener
}

// SubscribeObjectsChange implements ObjectsChangeSubscriber.
func (c *ObjectsChangeCaster) SubscribeObjectsChange(ln ObjectsChangeListener) {
	c.listeners = append(c.listeners, ln)
}

// HasListeners tells whether anyone is subscribed, so a caller can skip
// building notifications.
func (c *ObjectsChangeCaster) HasListeners() bool {
	return len(c.listeners) > 0
}

// ObjectsChanged implements ObjectsChangeListener.
func (c *ObjectsChangeCaster) ObjectsChanged(cc fx.ControlContext, objs ...Object) {
	if len(objs) == 0 {
		return
	}
	for _, ln := range c.listeners {
		ln.ObjectsChanged(cc, objs...)
	}
}

// ObjectsRemoved implements ObjectsChangeListener.
func (c *ObjectsChangeCaster) ObjectsRemoved(cc fx.ControlContext, objs ...Object) {
	if len(objs) == 0 {
		return
	}
	for _, ln := range c.listeners {
		ln.ObjectsRemoved(cc, objs...)
	}
}
