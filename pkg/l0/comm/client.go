package comm

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Result is the result of a command using Do.
type Result struct {
	Err  error
	Code byte
	Data []byte
}

// EventHandler receives event packets, i.e. packets with code bit 7 set.
type EventHandler func(*Packet)

// stateBacklog is how many state changes StateChan buffers; older changes
// are dropped when nobody reads them.
const stateBacklog = 8

// Client provides client side operations over FIFO.
type Client struct {
	// OnEvent receives events instead of EventChan when set before Run.
	OnEvent EventHandler

	fifo     *FIFO
	eventCh  chan *Packet
	stateCh  chan SyncState
	cmdsHead *Command
	cmdsTail *Command
	cmdsLock sync.Mutex

	readyLock sync.Mutex
	readyCh   chan struct{}
}

// Command represents a pending command waiting for reply.
type Command struct {
	requestSeq PacketSeq
	resultCh   chan Result
	next       *Command
}

// RequestSeq returns the request packet seq.
func (c *Command) RequestSeq() PacketSeq {
	return c.requestSeq
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// NewClient creates client and wraps the fifo.
func NewClient(fifo *FIFO) *Client {
	c := &Client{
		fifo:    fifo,
		eventCh: make(chan *Packet, 1),
		stateCh: make(chan SyncState, stateBacklog),
		readyCh: make(chan struct{}),
	}
	c.fifo.Handler = c
	c.fifo.Notifier = StateChangedFunc(c.stateChanged)
	return c
}

// FIFO gets wrapped FIFO.
func (c *Client) FIFO() *FIFO {
	return c.fifo
}

// StateChan retrieves the state reporting chan.
func (c *Client) StateChan() <-chan SyncState {
	return c.stateCh
}

// EventChan retrieves the event reporting chan.
func (c *Client) EventChan() <-chan *Packet {
	return c.eventCh
}

func (c *Client) stateChanged(ctx context.Context, state SyncState) {
	select {
	case c.stateCh <- state:
	default:
		glog.V(2).Infof("state %d dropped", state)
	}
	c.readyLock.Lock()
	defer c.readyLock.Unlock()
	ready := c.isClosed(c.readyCh)
	if state.IsReady() && !ready {
		close(c.readyCh)
	} else if !state.IsReady() && ready {
		c.readyCh = make(chan struct{})
	}
}

func (c *Client) isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the link is synchronized.
func (c *Client) WaitReady(ctx context.Context) error {
	c.readyLock.Lock()
	ch := c.readyCh
	c.readyLock.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DoWith sends a command and expects a result in the provided chan.
func (c *Client) DoWith(pkt *Packet, ch chan Result) *Command {
	cmd := &Command{resultCh: ch}

	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	err := c.fifo.Send(pkt)
	cmd.requestSeq = pkt.Seq
	if err != nil {
		cmd.resultCh <- Result{Err: err}
		return cmd
	}
	if c.cmdsHead == nil {
		c.cmdsHead = cmd
	} else {
		c.cmdsTail.next = cmd
	}
	c.cmdsTail = cmd
	return cmd
}

// Do sends a command and returns a Command for result.
func (c *Client) Do(pkt *Packet) *Command {
	return c.DoWith(pkt, make(chan Result, 1))
}

// Call sends a command and waits for its reply. A command error from the
// peer is returned as *CommandError.
func (c *Client) Call(ctx context.Context, code byte, data ...byte) ([]byte, error) {
	cmd := c.Do(&Packet{Code: code, Data: data})
	select {
	case r := <-cmd.ResultChan():
		return r.Data, r.Err
	case <-ctx.Done():
		c.forget(cmd)
		return nil, ctx.Err()
	}
}

func (c *Client) forget(cmd *Command) {
	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	var prev *Command
	for curr := c.cmdsHead; curr != nil; prev, curr = curr, curr.next {
		if curr != cmd {
			continue
		}
		if prev == nil {
			c.cmdsHead = curr.next
		} else {
			prev.next = curr.next
		}
		if c.cmdsTail == curr {
			c.cmdsTail = prev
		}
		curr.next = nil
		return
	}
}

// HandlePacket implements PacketHandler.
func (c *Client) HandlePacket(ctx context.Context, pkt *Packet) {
	if pkt.Code&CodeEvent != 0 {
		if h := c.OnEvent; h != nil {
			h(pkt)
			return
		}
		select {
		case c.eventCh <- pkt:
		case <-ctx.Done():
		}
		return
	}
	if len(pkt.Data) == 0 {
		// invalid response packet.
		return
	}
	seq := PacketSeq(pkt.Data[0])
	if !seq.IsValid() {
		// invalid sequence.
		return
	}
	c.cmdsLock.Lock()
	head := c.cmdsHead
	curr := c.cmdsHead
	for ; curr != nil; curr = curr.next {
		if curr.requestSeq == seq {
			if c.cmdsHead = curr.next; c.cmdsHead == nil {
				c.cmdsTail = nil
			}
			curr.next = nil
			break
		}
	}
	c.cmdsLock.Unlock()
	if curr == nil {
		return
	}
	// replies are in order, earlier commands got lost.
	for head != curr {
		next := head.next
		head.next = nil
		head.resultCh <- Result{Err: ErrNoReply}
		head = next
	}
	if pkt.Code&CodeError != 0 {
		cmdErr := &CommandError{Code: pkt.Code & CodeMask}
		if len(pkt.Data) > 1 {
			cmdErr.Reason = Reason(pkt.Data[1])
		}
		curr.resultCh <- Result{Err: cmdErr}
	} else {
		curr.resultCh <- Result{Code: pkt.Code & CodeMask, Data: pkt.Data[1:]}
	}
}

// Run wraps FIFO.Run to implement Runnable.
func (c *Client) Run(ctx context.Context) error {
	return c.fifo.Run(ctx)
}
