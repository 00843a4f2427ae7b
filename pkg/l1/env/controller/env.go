package controller

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1"
	"github.com/robotalks/linebot/pkg/l1/comm"
	"github.com/robotalks/linebot/pkg/l1/comm/mqtt"
	"github.com/robotalks/linebot/pkg/l1/comm/tcp"
	"github.com/robotalks/linebot/pkg/l1/comm/websocket"
	"github.com/robotalks/linebot/pkg/l1/env"
)

// Config provides common options to setup an env for L1 controllers.
type Config struct {
	Info l1.ControllerInfo

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string

	// WebsocketAddr is the listen address of the websocket registrar.
	// e.g. :8080
	WebsocketAddr string

	// TCPAddr is the listen address of the plain TCP registrar.
	TCPAddr string
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/",
}

func init() {
	if val := os.Getenv("LINEBOT_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("LINEBOT_WS_ADDR"); val != "" {
		defaultConfig.WebsocketAddr = val
	}
	if val := os.Getenv("LINEBOT_TCP_ADDR"); val != "" {
		defaultConfig.TCPAddr = val
	}
	if val := os.Getenv("LINEBOT_ID"); val != "" {
		defaultConfig.Info.Ref.ID = val
	} else {
		defaultConfig.Info.Ref.ID = env.MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Controller type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Controller ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Websocket listen address, empty to disable")
	flag.StringVar(&defaultConfig.TCPAddr, "tcp", defaultConfig.TCPAddr, "TCP listen address, empty to disable")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// SetControllerType should be called in init with basic info about the controller.
func SetControllerType(typ string, meta l1.ControllerMeta) {
	defaultConfig.Info.Ref.Type = typ
	defaultConfig.Info.Meta = meta
}

// Env is the env for L1 controllers.
type Env struct {
	Config       *Config
	RegistryURLs []string
	Registrar    *comm.RegistrarMux

	// MQTT is set when the MQTT broker is configured.
	MQTT *mqtt.Registrar
	// Websocket is set when the websocket listen address is configured.
	Websocket *websocket.Registrar
	// TCP is set when the TCP listen address is configured.
	TCP *tcp.Registrar
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("robot type and id must be specified")
	}
	env := &Env{
		Config:    c,
		Registrar: &comm.RegistrarMux{},
	}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar error: %v", err)
		}
		env.MQTT = reg
		env.Registrar.Add(reg)
		env.RegistryURLs = append(env.RegistryURLs, c.MQTTBrokerURL)
	}
	if c.WebsocketAddr != "" {
		reg := websocket.NewRegistrar(c.WebsocketAddr, c.Info)
		env.Websocket = reg
		env.Registrar.Add(reg)
		env.RegistryURLs = append(env.RegistryURLs, "ws://"+c.WebsocketAddr+reg.Path)
	}
	if c.TCPAddr != "" {
		reg := tcp.NewRegistrar(c.TCPAddr, c.Info)
		env.TCP = reg
		env.Registrar.Add(reg)
		env.RegistryURLs = append(env.RegistryURLs, tcp.Scheme+"://"+c.TCPAddr)
	}
	if len(env.Registrar.Registrars) == 0 {
		return nil, fmt.Errorf("at least one registrar is required")
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		glog.Exit(err)
	}
	return env
}

// PublishStatus publishes the retained status when MQTT is enabled.
func (e *Env) PublishStatus(msg fx.Message) error {
	if e.MQTT == nil {
		return nil
	}
	return e.MQTT.PublishStatus(msg)
}

// AddToLoop adds controllers/runners to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Registrar)
	loop.Add(&comm.UnsupportedCommands{})
}
