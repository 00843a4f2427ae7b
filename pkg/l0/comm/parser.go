package comm

// Parser is the receiving half of the link state machine. It never
// writes; the sync byte it wants sent is returned in ParseResult.
type Parser struct {
	phase   phase
	peerSeq PacketSeq
	packet  *Packet
	recvLen byte
	resyncs uint64
}

// SyncState indicates the state of the link.
type SyncState int

const (
	// SyncStateSyncing means the link is not synchronized.
	SyncStateSyncing SyncState = 0
	// SyncStateReady means the link is synchronized and packets can be sent.
	SyncStateReady SyncState = 0x01
	// SyncStateReceiving means a sync handshake or a packet is half way.
	SyncStateReceiving SyncState = 0x02
)

// IsReady tells if packets can be sent.
func (s SyncState) IsReady() bool {
	return s&SyncStateReady != 0
}

// IsReceiving tells if a handshake or a packet is half way.
func (s SyncState) IsReceiving() bool {
	return s&SyncStateReceiving != 0
}

// TimerAction tells the owner of the Parser what to do with its timer.
type TimerAction int

// Timer actions.
const (
	TimerNoChange TimerAction = iota
	TimerRestart
	TimerStop
)

// ParseResult is the outcome of feeding the Parser. Sync is the byte to
// send back to the peer (0 for nothing) and Packet is a completed packet.
type ParseResult struct {
	Sync   byte
	State  SyncState
	Packet *Packet
}

// WhatAboutTimer decides what to do with the timer. It runs while a sync
// request is unanswered or a packet is incomplete.
func (r ParseResult) WhatAboutTimer() TimerAction {
	switch {
	case r.State.IsReceiving() || r.Sync == syncREQ:
		return TimerRestart
	case r.State.IsReady():
		return TimerStop
	default:
		return TimerNoChange
	}
}

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

type phase int

const (
	phaseAwaitSync   phase = iota // sent syncREQ, wait for syncREQ or syncACK
	phaseReqSeq                   // got syncREQ, wait for the peer's seq
	phaseAckSeq                   // got syncACK, wait for the peer's seq
	phaseIdle                     // synced, wait for the next packet seq
	phaseIdleAckSeq               // syncACK while synced, the seq must match
	phaseHeader                   // wait for code and length
	phaseLength                   // wait for the extended length
	phasePayload                  // wait for payload bytes
)

// State gets the current sync state.
func (p *Parser) State() SyncState {
	switch {
	case p.phase == phaseAwaitSync:
		return SyncStateSyncing
	case p.phase == phaseIdle:
		return SyncStateReady
	case p.phase > phaseIdle:
		return SyncStateReady | SyncStateReceiving
	default:
		return SyncStateSyncing | SyncStateReceiving
	}
}

// Resyncs counts how many times the parser dropped back to syncing.
func (p *Parser) Resyncs() uint64 {
	return p.resyncs
}

// Reset drops any partial state and starts a handshake.
func (p *Parser) Reset() ParseResult {
	return p.result(p.resync())
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) ParseResult {
	switch p.phase {
	case phaseAwaitSync, phaseReqSeq, phaseAckSeq:
		return p.result(p.handshake(b))
	case phaseIdle, phaseIdleAckSeq:
		return p.result(p.sequence(b))
	default:
		return p.result(p.body(b))
	}
}

// Timeout tells the parser its timer expired. Anything but an idle link
// starts over.
func (p *Parser) Timeout() ParseResult {
	if p.phase == phaseIdle {
		return p.result(0, nil)
	}
	return p.result(p.resync())
}

func (p *Parser) result(sync byte, pkt *Packet) ParseResult {
	return ParseResult{Sync: sync, State: p.State(), Packet: pkt}
}

func (p *Parser) handshake(b byte) (byte, *Packet) {
	if p.phase == phaseAwaitSync {
		// anything else is line noise until the peer answers.
		switch b {
		case syncREQ:
			p.phase = phaseReqSeq
		case syncACK:
			p.phase = phaseAckSeq
		}
		return 0, nil
	}
	seq := PacketSeq(b)
	if !seq.IsValid() {
		return p.resync()
	}
	answer := byte(0)
	if p.phase == phaseReqSeq {
		answer = syncACK
	}
	p.peerSeq, p.phase = seq, phaseIdle
	return answer, nil
}

func (p *Parser) sequence(b byte) (byte, *Packet) {
	if p.phase == phaseIdleAckSeq {
		if b != byte(p.peerSeq) {
			return p.resync()
		}
		p.phase = phaseIdle
		return 0, nil
	}
	switch b {
	case syncREQ:
		p.phase = phaseReqSeq
	case syncACK:
		p.phase = phaseIdleAckSeq
	case byte(p.peerSeq):
		p.packet = &Packet{Seq: p.peerSeq}
		p.peerSeq = p.peerSeq.Next()
		p.phase = phaseHeader
	default:
		return p.resync()
	}
	return 0, nil
}

func (p *Parser) body(b byte) (byte, *Packet) {
	switch p.phase {
	case phaseHeader:
		p.packet.Code = b & codeWire
		switch n := (b & lenBits) >> lenShift; n {
		case 0:
			return p.complete()
		case lenInline:
			p.phase = phaseLength
		default:
			p.expect(n)
		}
	case phaseLength:
		if b > MaxDataLen {
			return p.resync()
		}
		if b == 0 {
			return p.complete()
		}
		p.expect(b)
	case phasePayload:
		p.packet.Data[p.recvLen] = b
		if p.recvLen++; p.recvLen >= byte(len(p.packet.Data)) {
			return p.complete()
		}
	}
	return 0, nil
}

func (p *Parser) expect(n byte) {
	p.packet.Data, p.recvLen = make([]byte, n), 0
	p.phase = phasePayload
}

func (p *Parser) resync() (byte, *Packet) {
	p.resyncs++
	p.packet = nil
	p.phase = phaseAwaitSync
	return syncREQ, nil
}

func (p *Parser) complete() (byte, *Packet) {
	pkt := p.packet
	p.packet, p.phase = nil, phaseIdle
	return 0, pkt
}
