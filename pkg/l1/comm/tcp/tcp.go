// Package tcp serves L1 controllers over plain TCP connections. Packets
// are length-prefixed (see package stream). The first packet the server
// sends on a new connection is the controller info in JSON.
package tcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"

	"github.com/golang/glog"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1"
	"github.com/robotalks/linebot/pkg/l1/comm"
	"github.com/robotalks/linebot/pkg/l1/comm/stream"
)

// Scheme is the URL scheme of TCP registries, e.g. l1://robot:7801.
const Scheme = "l1"

// Registrar implements l1.Registrar for TCP clients.
type Registrar struct {
	Addr string
	Info l1.ControllerInfo

	hub *comm.Hub
}

// NewRegistrar creates a Registrar listening on addr.
func NewRegistrar(addr string, info l1.ControllerInfo) *Registrar {
	return &Registrar{Addr: addr, Info: info, hub: comm.NewHub()}
}

// Hub returns the connection hub.
func (r *Registrar) Hub() *comm.Hub {
	return r.hub
}

// SendEvent implements l1.Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.hub.SendEvent(ctx, msg)
}

// Serve accepts connections from ln until it fails.
func (r *Registrar) Serve(ln net.Listener) error {
	info, err := json.Marshal(&r.Info)
	if err != nil {
		return err
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go r.serveConn(conn, info)
	}
}

func (r *Registrar) serveConn(conn net.Conn, info []byte) {
	defer conn.Close()
	rw := stream.New(conn)
	if err := rw.WritePacket(info); err != nil {
		glog.V(2).Infof("tcp client %s: %v", conn.RemoteAddr(), err)
		return
	}
	glog.Infof("tcp client %s connected", conn.RemoteAddr())
	if err := r.hub.Serve(rw); err != nil {
		glog.V(2).Infof("tcp client %s: %v", conn.RemoteAddr(), err)
	}
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.Addr)
	if err != nil {
		return err
	}
	glog.Infof("tcp registrar listening on %s", ln.Addr())
	return fx.RunWithContextCloser(ctx, ln, func() error { return r.Serve(ln) })
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(l *fx.Loop) {
	l.Add(r.hub)
	l.AddRunnable(fx.NamedRun("tcp "+r.Addr, r))
}

// Connector implements l1.Connector for a single controller served at
// l1://host:port.
type Connector struct {
	Addr string
}

// NewConnector creates a Connector from l1://host:port.
func NewConnector(serverURL string) (*Connector, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != Scheme || u.Host == "" {
		return nil, fmt.Errorf("invalid tcp registry URL %q", serverURL)
	}
	return &Connector{Addr: u.Host}, nil
}

func (c *Connector) dial(ctx context.Context) (*stream.ReadWriter, l1.ControllerInfo, error) {
	var info l1.ControllerInfo
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, info, err
	}
	rw := stream.New(conn)
	pkt, err := rw.ReadPacket()
	if err == nil {
		err = json.Unmarshal(pkt, &info)
	}
	if err != nil {
		conn.Close()
		return nil, info, fmt.Errorf("handshake with %s error: %v", c.Addr, err)
	}
	return rw, info, nil
}

// Discover implements l1.Connector.
func (c *Connector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	rw, info, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	rw.Close()
	return []l1.ControllerInfo{info}, nil
}

// Connect implements l1.Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	rw, info, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	if info.Ref != ref {
		rw.Close()
		return nil, fmt.Errorf("%s serves %s, not %s", c.Addr, info.Ref.Name(), ref.Name())
	}
	conn := &comm.ControllerConn{}
	conn.Init(rw)
	return conn, nil
}
