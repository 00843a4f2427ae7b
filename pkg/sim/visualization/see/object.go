package see

import (
	"math"
	"strings"

	"github.com/robotalks/linebot/pkg/sim"
)

// VisibleObject is a moving object drawn on the track, i.e. the robot.
type VisibleObject interface {
	sim.Object
	sim.Rectangular
	sim.Positionable2D
}

// Object is the property bag see renders. Keys are the Prop constants.
type Object map[string]interface{}

// Rect is an axis aligned area.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Pos is a point.
type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ObjectMapper maps a VisibleObject to the objects drawing it.
type ObjectMapper interface {
	MapObject(VisibleObject) []Object
}

// MapObjectFunc is the func form of ObjectMapper.
type MapObjectFunc func(VisibleObject) []Object

// MapObject implements ObjectMapper.
func (f MapObjectFunc) MapObject(obj VisibleObject) []Object {
	return f(obj)
}

// Message is one update line sent to see.
type Message struct {
	Action   string `json:"action"`
	Object   Object `json:"object,omitempty"`
	RemoveID string `json:"id,omitempty"`
}

// Actions
const (
	ActionReset  = "reset"
	ActionObject = "object"
	ActionRemove = "remove"
)

// Properties
const (
	PropID     = "id"
	PropType   = "type"
	PropRect   = "rect"
	PropOrigin = "origin"
	PropRadius = "radius"
	PropRotate = "rotate"
	PropStyle  = "style"
	PropPoints = "points"
	PropWidth  = "width"
)

// ObjectID converts an object name like "linebot/sim" to a see ID.
func ObjectID(name string) string {
	return strings.Replace(name, "/", ".", -1)
}

// NewObject creates Object.
func NewObject(typ, id string) Object {
	return Object{PropID: id, PropType: typ}
}

// ObjectFrom draws vo centered at its position, rotated to its heading.
// The radius covers the longer side of the outline.
func ObjectFrom(typ string, vo VisibleObject) Object {
	rc, po := vo.OutlineRect(), vo.Position2D()
	return NewObject(typ, ObjectID(vo.Name())).
		At(po.X, po.Y).
		Radius(math.Max(rc.CX, rc.CY)).
		Rotate(po.Orientation.Degrees())
}

// PathObject draws a polyline of the given stroke width.
func PathObject(id string, width float64, pts ...sim.Pos2D) Object {
	ps := make([]Pos, len(pts))
	for n, p := range pts {
		ps[n] = Pos{X: p.X, Y: p.Y}
	}
	return NewObject("path", id).With(PropPoints, ps).With(PropWidth, width)
}

// Rc sets rect.
func (o Object) Rc(x, y, w, h float64) Object {
	o[PropRect] = &Rect{X: x, Y: y, W: w, H: h}
	return o
}

// At sets origin.
func (o Object) At(x, y float64) Object {
	o[PropOrigin] = &Pos{X: x, Y: y}
	return o
}

// Radius sets radius.
func (o Object) Radius(r float64) Object {
	o[PropRadius] = r
	return o
}

// Rotate sets rotation in degrees.
func (o Object) Rotate(deg float64) Object {
	o[PropRotate] = deg
	return o
}

// Style merges CSS style properties.
func (o Object) Style(key, val string) Object {
	style, _ := o[PropStyle].(map[string]string)
	if style == nil {
		style = make(map[string]string)
		o[PropStyle] = style
	}
	style[key] = val
	return o
}

// With sets a custom property.
func (o Object) With(key string, val interface{}) Object {
	o[key] = val
	return o
}
