// Package firmware drives the line follower through the microcontroller
// firmware over a serial link.
package firmware

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/tarm/serial"

	"github.com/robotalks/linebot/pkg/bump"
	"github.com/robotalks/linebot/pkg/drive"
	"github.com/robotalks/linebot/pkg/l0/comm"
	"github.com/robotalks/linebot/pkg/sensor"
)

// Command codes understood by the firmware.
const (
	CodeSample   byte = 0x02
	CodeDrive    byte = 0x04
	CodeStop     byte = 0x06
	CodeIndicate byte = 0x08
	CodeReadBump byte = 0x0a

	// EventBump is pushed with the raw bump port whenever it changes.
	EventBump byte = comm.CodeEvent | 0x02
)

// Defaults
const (
	DefaultPort    = "/dev/ttyACM0"
	DefaultBaud    = 115200
	DefaultTimeout = 50 * time.Millisecond
)

// ErrShortReply is returned when a reply misses its payload.
var ErrShortReply = errors.New("short reply")

// Config is the serial port configuration.
type Config struct {
	Port    string
	Baud    int
	Timeout time.Duration
}

// Board is the firmware backed robot. It implements sensor.Source,
// drive.Actuator, drive.Indicator and bump.Switches.
type Board struct {
	// Timeout bounds every command round trip.
	Timeout time.Duration

	client *comm.Client
	closer io.Closer

	watchLock sync.Mutex
	watchers  map[int]chan bump.Mask
	watchID   int
}

// Open opens the serial port and wraps it into a Board.
func Open(conf Config) (*Board, error) {
	if conf.Port == "" {
		conf.Port = DefaultPort
	}
	if conf.Baud == 0 {
		conf.Baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        conf.Port,
		Baud:        conf.Baud,
		ReadTimeout: comm.DefaultSyncTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s error: %w", conf.Port, err)
	}
	fifo := comm.NewFIFO(port)
	fifo.ReadTimeout = true
	b := New(comm.NewClient(fifo))
	if conf.Timeout > 0 {
		b.Timeout = conf.Timeout
	}
	b.closer = port
	return b, nil
}

// New creates a Board over an established client.
func New(client *comm.Client) *Board {
	b := &Board{
		Timeout:  DefaultTimeout,
		client:   client,
		watchers: make(map[int]chan bump.Mask),
	}
	client.OnEvent = b.handleEvent
	return b
}

// Client returns the underlying link client.
func (b *Board) Client() *comm.Client {
	return b.client
}

// Run processes the link until ctx is done.
func (b *Board) Run(ctx context.Context) error {
	return b.client.Run(ctx)
}

// WaitReady blocks until the firmware link is synchronized.
func (b *Board) WaitReady(ctx context.Context) error {
	return b.client.WaitReady(ctx)
}

// Close closes the serial port.
func (b *Board) Close() error {
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}

func (b *Board) call(code byte, data ...byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()
	reply, err := b.client.Call(ctx, code, data...)
	if err != nil {
		return nil, fmt.Errorf("firmware command 0x%02x error: %w", code, err)
	}
	return reply, nil
}

// Sample implements sensor.Source.
func (b *Board) Sample() (sensor.Reading, error) {
	reply, err := b.call(CodeSample)
	if err != nil {
		return 0, err
	}
	if len(reply) < 1 {
		return 0, ErrShortReply
	}
	return sensor.Reading(reply[0]), nil
}

// EncodeDrive builds the drive payload: direction, then the left and right
// duties big endian.
func EncodeDrive(cmd drive.Command) []byte {
	data := make([]byte, 5)
	data[0] = byte(cmd.Direction)
	binary.BigEndian.PutUint16(data[1:], cmd.Left)
	binary.BigEndian.PutUint16(data[3:], cmd.Right)
	return data
}

// DecodeDrive is the inverse of EncodeDrive.
func DecodeDrive(data []byte) (drive.Command, error) {
	if len(data) < 5 {
		return drive.Command{}, ErrShortReply
	}
	cmd := drive.Command{
		Direction: drive.Direction(data[0]),
		Left:      binary.BigEndian.Uint16(data[1:]),
		Right:     binary.BigEndian.Uint16(data[3:]),
	}
	return cmd, cmd.Validate()
}

// Apply implements drive.Actuator.
func (b *Board) Apply(cmd drive.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if !cmd.IsMoving() {
		return b.Stop()
	}
	_, err := b.call(CodeDrive, EncodeDrive(cmd)...)
	return err
}

// Stop implements drive.Actuator.
func (b *Board) Stop() error {
	_, err := b.call(CodeStop)
	return err
}

// Indicate implements drive.Indicator.
func (b *Board) Indicate(c drive.Color) error {
	_, err := b.call(CodeIndicate, byte(c))
	return err
}

// Read implements bump.Switches.
func (b *Board) Read() (bump.Mask, error) {
	reply, err := b.call(CodeReadBump)
	if err != nil {
		return 0, err
	}
	if len(reply) < 1 {
		return 0, ErrShortReply
	}
	return bump.DecodePort(reply[0]), nil
}

// watchBacklog bounds the bump events queued for a slow watcher.
const watchBacklog = 8

// Watch implements bump.Switches. It waits for the link to synchronize
// before reading the initial state; changes arrive as EventBump events.
// fn is called on the watching goroutine, so it may issue commands.
func (b *Board) Watch(ctx context.Context, fn func(bump.Mask)) error {
	ch := make(chan bump.Mask, watchBacklog)
	b.watchLock.Lock()
	id := b.watchID
	b.watchID++
	b.watchers[id] = ch
	b.watchLock.Unlock()

	defer func() {
		b.watchLock.Lock()
		delete(b.watchers, id)
		b.watchLock.Unlock()
	}()

	if err := b.WaitReady(ctx); err != nil {
		return err
	}
	if mask, err := b.Read(); err != nil {
		glog.Warningf("read initial bump state error: %v", err)
	} else {
		fn(mask)
	}

	for {
		select {
		case mask := <-ch:
			fn(mask)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Watchers returns the number of active watchers.
func (b *Board) Watchers() int {
	b.watchLock.Lock()
	defer b.watchLock.Unlock()
	return len(b.watchers)
}

func (b *Board) handleEvent(pkt *comm.Packet) {
	if pkt.Code != EventBump {
		glog.V(2).Infof("ignore firmware event 0x%02x", pkt.Code)
		return
	}
	if len(pkt.Data) < 1 {
		glog.Warning("bump event without port value")
		return
	}
	mask := bump.DecodePort(pkt.Data[0])
	b.watchLock.Lock()
	defer b.watchLock.Unlock()
	for id, ch := range b.watchers {
		select {
		case ch <- mask:
		default:
			glog.Warningf("bump watcher %d is behind, mask %v dropped", id, mask)
		}
	}
}
