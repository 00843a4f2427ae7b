package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1"
	"github.com/robotalks/linebot/pkg/l1/comm"
)

// DefaultPath is where the message endpoint is served, the controller
// info is served at DefaultPath + "/info".
const DefaultPath = "/l1"

// Registrar serves the L1 controller to websocket clients.
// It implements l1.Registrar.
type Registrar struct {
	Addr string
	Path string
	Info l1.ControllerInfo

	hub *comm.Hub
}

// NewRegistrar creates a Registrar listening on addr.
func NewRegistrar(addr string, info l1.ControllerInfo) *Registrar {
	return &Registrar{Addr: addr, Path: DefaultPath, Info: info, hub: comm.NewHub()}
}

// Hub returns the connection hub.
func (r *Registrar) Hub() *comm.Hub {
	return r.hub
}

// Handler returns the HTTP handler serving the endpoints.
func (r *Registrar) Handler() http.Handler {
	path := strings.TrimSuffix(r.Path, "/")
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(func(conn *websocket.Conn) {
		glog.Infof("websocket client %s connected", conn.Request().RemoteAddr)
		if err := r.hub.Serve(New(conn)); err != nil {
			glog.V(2).Infof("websocket client %s: %v", conn.Request().RemoteAddr, err)
		}
	}))
	mux.HandleFunc(path+"/info", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&r.Info)
	})
	return mux
}

// SendEvent implements l1.Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.hub.SendEvent(ctx, msg)
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	server := &http.Server{Addr: r.Addr, Handler: r.Handler()}
	glog.Infof("websocket registrar listening on %s%s", r.Addr, r.Path)
	return fx.RunWithContextCloser(ctx, server, server.ListenAndServe)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(l *fx.Loop) {
	l.Add(r.hub)
	l.AddRunnable(fx.NamedRun("websocket "+r.Addr, r))
}
