package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/robotalks/linebot/pkg/l1"
	"github.com/robotalks/linebot/pkg/l1/comm"
)

// Connector implements l1.Connector for a single controller served at
// ws://host:port/path.
type Connector struct {
	URL *url.URL
}

// NewConnector creates a Connector, the path defaults to DefaultPath.
func NewConnector(serverURL string) (*Connector, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported websocket scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPath
	}
	return &Connector{URL: u}, nil
}

func (c *Connector) infoURL() string {
	u := *c.URL
	u.Scheme = strings.Replace(u.Scheme, "ws", "http", 1)
	u.Path = strings.TrimSuffix(u.Path, "/") + "/info"
	return u.String()
}

// Discover implements l1.Connector.
func (c *Connector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	req, err := http.NewRequest(http.MethodGet, c.infoURL(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discover %s: %s", c.URL.Host, resp.Status)
	}
	var info l1.ControllerInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return []l1.ControllerInfo{info}, nil
}

// Connect implements l1.Connector. The server hosts exactly one
// controller, so ref is only used for messages.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	origin := *c.URL
	origin.Scheme = strings.Replace(origin.Scheme, "ws", "http", 1)
	origin.Path = "/"
	conf, err := websocket.NewConfig(c.URL.String(), origin.String())
	if err != nil {
		return nil, err
	}
	conf.Dialer = &net.Dialer{}
	if deadline, ok := ctx.Deadline(); ok {
		conf.Dialer.Deadline = deadline
	}
	ws, err := websocket.DialConfig(conf)
	if err != nil {
		return nil, fmt.Errorf("connect %s error: %w", ref.Name(), err)
	}
	conn := &ControllerConn{}
	conn.Init(New(ws))
	return conn, nil
}

// ControllerConn implements l1.ControllerConn over websocket.
type ControllerConn struct {
	comm.ControllerConn
}
