package comm

import (
	"context"
	"errors"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/linebot/pkg/framework"
)

// ErrHubStopped is returned attaching a connection to a stopped Hub.
var ErrHubStopped = errors.New("hub stopped")

// Hub is an l1.Registrar for servers accepting many connections, e.g.
// websocket clients. Commands from every connection go to the loop the
// Hub runs in, events are broadcast to all connections.
type Hub struct {
	lock    sync.Mutex
	ctx     context.Context
	readyCh chan struct{}
	conns   map[*Registrar]struct{}
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{
		readyCh: make(chan struct{}),
		conns:   make(map[*Registrar]struct{}),
	}
}

// Run implements Runnable, it must run inside a Loop.
func (h *Hub) Run(ctx context.Context) error {
	h.lock.Lock()
	h.ctx = ctx
	close(h.readyCh)
	h.lock.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

// AddToLoop implements LoopAdder.
func (h *Hub) AddToLoop(l *fx.Loop) {
	l.AddRunnable(h)
}

// Serve attaches a connection and processes it until it fails or the Hub
// stops.
func (h *Hub) Serve(rw PacketReadWriter) error {
	<-h.readyCh
	h.lock.Lock()
	ctx := h.ctx
	if ctx.Err() != nil {
		h.lock.Unlock()
		return ErrHubStopped
	}
	reg := NewRegistrar(rw)
	h.conns[reg] = struct{}{}
	h.lock.Unlock()
	glog.V(2).Infof("hub connection attached, %d total", h.Len())

	defer func() {
		h.lock.Lock()
		delete(h.conns, reg)
		h.lock.Unlock()
		glog.V(2).Infof("hub connection detached")
	}()
	return reg.Run(ctx)
}

// Len returns the number of attached connections.
func (h *Hub) Len() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.conns)
}

// SendEvent implements l1.Registrar.
func (h *Hub) SendEvent(ctx context.Context, msg fx.Message) error {
	h.lock.Lock()
	regs := make([]*Registrar, 0, len(h.conns))
	for reg := range h.conns {
		regs = append(regs, reg)
	}
	h.lock.Unlock()
	var errs fx.AggregatedError
	for _, reg := range regs {
		errs.Add(reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}
