package connector

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/linebot/pkg/l1"
	"github.com/robotalks/linebot/pkg/l1/comm/mqtt"
	"github.com/robotalks/linebot/pkg/l1/comm/tcp"
	"github.com/robotalks/linebot/pkg/l1/comm/websocket"
)

// Config provides common options to setup Connectors.
type Config struct {
	Ref l1.ControllerRef

	// RegistryURL specifies the URL of controller registry.
	// e.g. mqtt://host:port/topic-prefix, ws://host:port/l1 or l1://host:port
	RegistryURL string
}

var defaultConfig = Config{
	Ref:         l1.ControllerRef{Type: "linebot"},
	RegistryURL: "mqtt://localhost:1883/",
}

func init() {
	if val := os.Getenv("LINEBOT_TYPE"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("LINEBOT_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("LINEBOT_REGISTRY_URL"); val != "" {
		defaultConfig.RegistryURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "robot-type", defaultConfig.Ref.Type, "Robot type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "robot-id", defaultConfig.Ref.ID, "Robot ID to connect.")
	flag.StringVar(&defaultConfig.RegistryURL, "robot-reg", defaultConfig.RegistryURL, "Robot Registry URL.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector using current config.
func (c *Config) NewConnector() (l1.Connector, error) {
	parsedURL, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %v", err)
	}
	switch parsedURL.Scheme {
	case "mqtt", "tcp", "ssl":
		return mqtt.NewConnector(c.RegistryURL)
	case "ws", "wss":
		return websocket.NewConnector(c.RegistryURL)
	case tcp.Scheme:
		return tcp.NewConnector(c.RegistryURL)
	default:
		return nil, fmt.Errorf("unknown registry URL scheme: %q", parsedURL.Scheme)
	}
}

// MustNewConnector creates a Connector and fails on error.
func (c *Config) MustNewConnector() l1.Connector {
	conn, err := c.NewConnector()
	if err != nil {
		glog.Exit(err)
	}
	return conn
}

// Connect directly connects to L1 controller. An empty ID picks the only
// controller of the type found by discovery.
func (c *Config) Connect(ctx context.Context) (l1.ControllerConn, error) {
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	ref := c.Ref
	if ref.Type != "" && ref.ID == "" {
		if ref, err = discoverOne(ctx, connector, ref.Type); err != nil {
			return nil, err
		}
	}
	if !ref.IsValid() {
		return nil, fmt.Errorf("robot type and id must be specified")
	}
	return connector.Connect(ctx, ref)
}

func discoverOne(ctx context.Context, connector l1.Connector, typ string) (l1.ControllerRef, error) {
	infos, err := connector.Discover(ctx)
	if err != nil {
		return l1.ControllerRef{}, fmt.Errorf("discover error: %v", err)
	}
	var found []l1.ControllerRef
	for _, info := range infos {
		if info.Ref.Type == typ {
			found = append(found, info.Ref)
		}
	}
	switch len(found) {
	case 0:
		return l1.ControllerRef{}, fmt.Errorf("no %s found", typ)
	case 1:
		return found[0], nil
	default:
		return l1.ControllerRef{}, fmt.Errorf("%d robots of type %s found, specify the id", len(found), typ)
	}
}

// MustConnect connects to L1 controller for fail.
func (c *Config) MustConnect(ctx context.Context) l1.ControllerConn {
	conn, err := c.Connect(ctx)
	if err != nil {
		glog.Exit(err)
	}
	return conn
}
