// Package msgs defines the L1 messages of the line follower.
package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1/msgs"
)

// StatusQuery queries the status of the controller.
type StatusQuery struct {
}

// NewMessage implements Message.
func (m *StatusQuery) NewMessage() fx.Message { return &StatusQuery{} }

// TypeID implements SerializableMessage.
func (m *StatusQuery) TypeID() uint32 { return StatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *StatusQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *StatusQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatusQuery) Reset() { *m = StatusQuery{} }

// String implements proto.Message.
func (m *StatusQuery) String() string { return proto.CompactTextString(m) }

// Status is the reply of StatusQuery.
type Status struct {
	Table         string `protobuf:"bytes,1,opt,name=table,proto3" json:"table,omitempty"`
	State         string `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
	Symbol        uint32 `protobuf:"varint,3,opt,name=symbol,proto3" json:"symbol,omitempty"`
	Raw           uint32 `protobuf:"varint,4,opt,name=raw,proto3" json:"raw,omitempty"`
	Position      int32  `protobuf:"varint,5,opt,name=position,proto3" json:"position,omitempty"`
	PositionValid bool   `protobuf:"varint,6,opt,name=position_valid,json=positionValid,proto3" json:"position_valid,omitempty"`
	Collision     bool   `protobuf:"varint,7,opt,name=collision,proto3" json:"collision,omitempty"`
	Switches      uint32 `protobuf:"varint,8,opt,name=switches,proto3" json:"switches,omitempty"`
	Ticks         uint64 `protobuf:"varint,9,opt,name=ticks,proto3" json:"ticks,omitempty"`
	Recoveries    uint32 `protobuf:"varint,10,opt,name=recoveries,proto3" json:"recoveries,omitempty"`
	Recovering    bool   `protobuf:"varint,11,opt,name=recovering,proto3" json:"recovering,omitempty"`
	Direction     string `protobuf:"bytes,12,opt,name=direction,proto3" json:"direction,omitempty"`
	Left          uint32 `protobuf:"varint,13,opt,name=left,proto3" json:"left,omitempty"`
	Right         uint32 `protobuf:"varint,14,opt,name=right,proto3" json:"right,omitempty"`
}

// NewMessage implements Message.
func (m *Status) NewMessage() fx.Message { return &Status{} }

// TypeID implements SerializableMessage.
func (m *Status) TypeID() uint32 { return StatusTypeID }

// Serializable implements SerializableMessage.
func (m *Status) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Status) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Status) Reset() { *m = Status{} }

// String implements proto.Message.
func (m *Status) String() string { return proto.CompactTextString(m) }

// ResetCollision clears the collision override.
type ResetCollision struct {
	// Force clears even if switches are still pressed.
	Force bool `protobuf:"varint,1,opt,name=force,proto3" json:"force,omitempty"`
}

// NewMessage implements Message.
func (m *ResetCollision) NewMessage() fx.Message { return &ResetCollision{} }

// TypeID implements SerializableMessage.
func (m *ResetCollision) TypeID() uint32 { return ResetCollisionTypeID }

// Serializable implements SerializableMessage.
func (m *ResetCollision) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ResetCollision) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ResetCollision) Reset() { *m = ResetCollision{} }

// String implements proto.Message.
func (m *ResetCollision) String() string { return proto.CompactTextString(m) }

// Halt stops the robot as if it collided.
type Halt struct {
}

// NewMessage implements Message.
func (m *Halt) NewMessage() fx.Message { return &Halt{} }

// TypeID implements SerializableMessage.
func (m *Halt) TypeID() uint32 { return HaltTypeID }

// Serializable implements SerializableMessage.
func (m *Halt) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Halt) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Halt) Reset() { *m = Halt{} }

// String implements proto.Message.
func (m *Halt) String() string { return proto.CompactTextString(m) }

// StateChanged is the event sent when the steering state changes.
type StateChanged struct {
	From   string `protobuf:"bytes,1,opt,name=from,proto3" json:"from,omitempty"`
	To     string `protobuf:"bytes,2,opt,name=to,proto3" json:"to,omitempty"`
	Symbol uint32 `protobuf:"varint,3,opt,name=symbol,proto3" json:"symbol,omitempty"`
	Tick   uint64 `protobuf:"varint,4,opt,name=tick,proto3" json:"tick,omitempty"`
}

// NewMessage implements Message.
func (m *StateChanged) NewMessage() fx.Message { return &StateChanged{} }

// TypeID implements SerializableMessage.
func (m *StateChanged) TypeID() uint32 { return StateChangedTypeID }

// Serializable implements SerializableMessage.
func (m *StateChanged) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *StateChanged) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StateChanged) Reset() { *m = StateChanged{} }

// String implements proto.Message.
func (m *StateChanged) String() string { return proto.CompactTextString(m) }

// Collision is the event sent when the bump switches override the drive.
type Collision struct {
	Switches uint32 `protobuf:"varint,1,opt,name=switches,proto3" json:"switches,omitempty"`
	Tick     uint64 `protobuf:"varint,2,opt,name=tick,proto3" json:"tick,omitempty"`
	Cleared  bool   `protobuf:"varint,3,opt,name=cleared,proto3" json:"cleared,omitempty"`
}

// NewMessage implements Message.
func (m *Collision) NewMessage() fx.Message { return &Collision{} }

// TypeID implements SerializableMessage.
func (m *Collision) TypeID() uint32 { return CollisionTypeID }

// Serializable implements SerializableMessage.
func (m *Collision) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Collision) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Collision) Reset() { *m = Collision{} }

// String implements proto.Message.
func (m *Collision) String() string { return proto.CompactTextString(m) }

// TypeIDs
const (
	StatusQueryTypeID    uint32 = msgs.GroupLineFollow | 0x0000
	StatusTypeID         uint32 = StatusQueryTypeID | msgs.TypeIDMaskReply
	ResetCollisionTypeID uint32 = msgs.GroupLineFollow | 0x0001
	HaltTypeID           uint32 = msgs.GroupLineFollow | 0x0002
	StateChangedTypeID   uint32 = msgs.TypeIDKindEvent | msgs.GroupLineFollow | 0x0000
	CollisionTypeID      uint32 = msgs.TypeIDKindEvent | msgs.GroupLineFollow | 0x0001
)

func init() {
	msgs.Register(
		(*StatusQuery)(nil),
		(*Status)(nil),
		(*ResetCollision)(nil),
		(*Halt)(nil),
		(*StateChanged)(nil),
		(*Collision)(nil),
	)
}
