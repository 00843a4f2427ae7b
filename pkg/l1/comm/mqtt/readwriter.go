package mqtt

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/robotalks/linebot/pkg/l1"
)

// DefaultPublishTimeout bounds how long WritePacket waits for the broker.
const DefaultPublishTimeout = time.Second

// ReadWriter carries packets over a pair of MQTT topics. Packets arriving
// before ReadPacket is called are buffered up to Backlog.
type ReadWriter struct {
	Queue          *Queue
	SubTopic       string
	PubTopic       string
	PublishTimeout time.Duration

	packetCh  chan []byte
	doneCh    chan struct{}
	closeOnce sync.Once
}

// Backlog is the number of received packets buffered.
const Backlog = 16

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:          q,
		PublishTimeout: DefaultPublishTimeout,
		packetCh:       make(chan []byte, Backlog),
		doneCh:         make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForConnector subscribes <type>/<id>/msg and publishes to <type>/<id>/cmd.
func (p *ReadWriter) ForConnector(ref l1.ControllerRef) *ReadWriter {
	return p.WithTopics(ControllerTopic(ref, TopicMsg), ControllerTopic(ref, TopicCmd))
}

// ForController subscribes <type>/<id>/cmd and publishes to <type>/<id>/msg.
func (p *ReadWriter) ForController(ref l1.ControllerRef) *ReadWriter {
	return p.WithTopics(ControllerTopic(ref, TopicCmd), ControllerTopic(ref, TopicMsg))
}

// ReadPacket implements PacketReader. It returns io.EOF once Run stopped.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	if !token.WaitTimeout(p.PublishTimeout) {
		return fmt.Errorf("publish %s timeout", p.PubTopic)
	}
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	defer sub.Close()
	defer p.Close()
	<-ctx.Done()
	return ctx.Err()
}

// Close stops ReadPacket.
func (p *ReadWriter) Close() error {
	p.closeOnce.Do(func() { close(p.doneCh) })
	return nil
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- append([]byte(nil), payload...):
	case <-p.doneCh:
	}
}
