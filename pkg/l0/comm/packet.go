package comm

import (
	"io"
	"time"
)

// Code bits of a packet.
const (
	// CodeEvent marks a packet sent by the firmware without a request.
	CodeEvent byte = 0x80
	// CodeError marks a failed reply.
	CodeError byte = 0x01
	// CodeMask keeps the command code of a reply.
	CodeMask byte = 0x7e

	codeWire  byte = 0x8f
	lenShift       = 4
	lenBits   byte = 0x70
	lenInline byte = 7
)

// MaxDataLen is the largest payload a packet can carry.
const MaxDataLen = 0x7f

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// NewPacketSeq creates a random packet sequence number.
func NewPacketSeq() PacketSeq {
	return PacketSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next sequence number, skipping 0 and the sync bytes.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// Packet contains the information of a parsed packet.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// IsEvent tells if the packet is an event.
func (p *Packet) IsEvent() bool {
	return p.Code&CodeEvent != 0
}

// header encodes seq, code and length into dst, returns the used prefix.
// Payloads shorter than 7 bytes carry the length in the code byte,
// otherwise an extra length byte follows.
func (p *Packet) header(dst *[3]byte) []byte {
	l := len(p.Data)
	if l > MaxDataLen {
		l = MaxDataLen
	}
	dst[0], dst[1] = byte(p.Seq), p.Code&codeWire
	if byte(l) < lenInline {
		dst[1] |= (byte(l) << lenShift) & lenBits
		return dst[:2]
	}
	dst[1] |= lenBits
	dst[2] = byte(l)
	return dst[:3]
}

func (p *Packet) payload() []byte {
	if len(p.Data) > MaxDataLen {
		return p.Data[:MaxDataLen]
	}
	return p.Data
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() []byte {
	var head [3]byte
	data := p.payload()
	b := make([]byte, 0, len(data)+len(head))
	b = append(b, p.header(&head)...)
	return append(b, data...)
}

// WriteTo writes encoded bytes.
func (p *Packet) WriteTo(w io.Writer) (n int, err error) {
	var head [3]byte
	if n, err = w.Write(p.header(&head)); err != nil {
		return
	}
	if data := p.payload(); len(data) > 0 {
		var n1 int
		n1, err = w.Write(data)
		n += n1
	}
	return
}
