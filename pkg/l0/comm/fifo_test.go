package comm

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const linkTimeout = 500 * time.Millisecond

// firmwareEnd plays the firmware side of a FIFO over an in-memory
// serial line.
type firmwareEnd struct {
	t       *testing.T
	line    net.Conn
	fifo    *FIFO
	packets chan *Packet
	states  chan SyncState
	cancel  func()
	done    chan error
}

func newFirmwareEnd(t *testing.T, timeout time.Duration) *firmwareEnd {
	host, fw := net.Pipe()
	e := &firmwareEnd{
		t:       t,
		line:    fw,
		fifo:    NewFIFO(host),
		packets: make(chan *Packet, 16),
		states:  make(chan SyncState, 64),
		done:    make(chan error, 1),
	}
	e.fifo.seq = PacketSeq(1)
	e.fifo.Timeout = timeout
	e.fifo.Handler = HandlePacketFunc(func(ctx context.Context, pkt *Packet) {
		e.packets <- pkt
	})
	e.fifo.Notifier = StateChangedFunc(func(ctx context.Context, state SyncState) {
		select {
		case e.states <- state:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = func() {
		cancel()
		fw.Close()
		host.Close()
	}
	go func() { e.done <- e.fifo.Run(ctx) }()
	return e
}

func (e *firmwareEnd) close() {
	e.cancel()
	<-e.done
}

// expectWrite reads exactly bs from the host.
func (e *firmwareEnd) expectWrite(bs ...byte) {
	e.line.SetReadDeadline(time.Now().Add(linkTimeout))
	buf := make([]byte, len(bs))
	_, err := io.ReadFull(e.line, buf)
	require.NoError(e.t, err)
	require.Equal(e.t, bs, buf)
}

func (e *firmwareEnd) write(bs ...byte) {
	e.line.SetWriteDeadline(time.Now().Add(linkTimeout))
	_, err := e.line.Write(bs)
	require.NoError(e.t, err)
}

func (e *firmwareEnd) expectStates(states ...SyncState) {
	for n, expected := range states {
		select {
		case state := <-e.states:
			require.Equalf(e.t, expected, state, "state[%d]", n)
		case <-time.After(linkTimeout):
			e.t.Fatalf("state[%d] timeout", n)
		}
	}
}

func (e *firmwareEnd) expectPacket(seq PacketSeq, code byte, data []byte) {
	select {
	case pkt := <-e.packets:
		require.Equal(e.t, seq, pkt.Seq)
		require.Equal(e.t, code, pkt.Code)
		if len(data) == 0 {
			require.Empty(e.t, pkt.Data)
		} else {
			require.Equal(e.t, data, pkt.Data)
		}
	case <-time.After(linkTimeout):
		e.t.Fatal("packet timeout")
	}
}

func (e *firmwareEnd) sync() {
	e.expectWrite(syncREQ, 0x01)
	e.write(syncACK, 0x01)
	e.expectStates(SyncStateReceiving, SyncStateReady)
}

func TestFIFOReceive(t *testing.T) {
	e := newFirmwareEnd(t, DefaultSyncTimeout)
	defer e.close()
	e.sync()

	e.write(
		0x01, 0x12, 0x18, // reflectance reading
		0x02, 0x92, 0x3a, // bump event
		0x03, 0x72, 0x08, 1, 2, 3, 4, 5, 6, 7, 8,
	)
	e.expectPacket(1, 0x02, []byte{0x18})
	e.expectPacket(2, 0x82, []byte{0x3a})
	e.expectPacket(3, 0x02, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.Equal(t, uint64(3), e.fifo.Stats().Received)
}

func TestFIFOSend(t *testing.T) {
	e := newFirmwareEnd(t, DefaultSyncTimeout)
	defer e.close()

	e.expectWrite(syncREQ, 0x01)
	require.Equal(t, ErrNotReady, e.fifo.Send(&Packet{Code: 0x06}))
	e.write(syncACK, 0x01)
	e.expectStates(SyncStateReceiving, SyncStateReady)

	errCh := make(chan error, 1)
	go func() {
		if err := e.fifo.Send(&Packet{Code: 0x06}); err != nil {
			errCh <- err
			return
		}
		errCh <- e.fifo.Send(&Packet{Code: 0x04, Data: []byte{1, 0xa0, 0x0f, 0xa0, 0x0f}})
	}()
	e.expectWrite(0x01, 0x06)
	e.expectWrite(0x02, 0x54, 1, 0xa0, 0x0f, 0xa0, 0x0f)
	require.NoError(t, <-errCh)
	require.Equal(t, uint64(2), e.fifo.Stats().Sent)
}

func TestFIFOResync(t *testing.T) {
	t.Run("out of order byte", func(t *testing.T) {
		e := newFirmwareEnd(t, DefaultSyncTimeout)
		defer e.close()
		e.sync()

		e.write(0x05)
		e.expectWrite(syncREQ, 0x01)
		e.expectStates(SyncStateSyncing)
		require.Equal(t, uint64(2), e.fifo.Stats().Resyncs)

		e.write(syncACK, 0x09)
		e.expectStates(SyncStateReceiving, SyncStateReady)
		e.write(0x09, 0x02)
		e.expectPacket(9, 0x02, nil)
	})

	t.Run("firmware requests sync", func(t *testing.T) {
		e := newFirmwareEnd(t, DefaultSyncTimeout)
		defer e.close()
		e.sync()

		e.write(syncREQ, 0x07)
		e.expectWrite(syncACK, 0x01)
		e.write(0x07, 0x02)
		e.expectPacket(7, 0x02, nil)
	})

	t.Run("partial packet times out", func(t *testing.T) {
		e := newFirmwareEnd(t, DefaultSyncTimeout)
		defer e.close()
		e.sync()

		e.write(0x01)
		e.expectStates(SyncStateReady | SyncStateReceiving)
		e.expectWrite(syncREQ, 0x01)
		e.expectStates(SyncStateSyncing)
	})

	t.Run("unanswered sync is repeated", func(t *testing.T) {
		e := newFirmwareEnd(t, 20*time.Millisecond)
		defer e.close()

		e.expectWrite(syncREQ, 0x01)
		e.expectWrite(syncREQ, 0x01)
		require.True(t, e.fifo.Stats().Resyncs >= 2)
	})
}
