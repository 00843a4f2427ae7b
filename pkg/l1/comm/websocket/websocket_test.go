package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1"
	"github.com/robotalks/linebot/pkg/l1/comm"
	lfmsgs "github.com/robotalks/linebot/pkg/linefollow/msgs"
)

func TestRegistrarOverWebsocket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	info := l1.ControllerInfo{
		Ref:  l1.ControllerRef{Type: "linebot", ID: "test"},
		Meta: l1.ControllerMeta{Description: "line follower"},
	}
	reg := NewRegistrar("", info)
	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	loop := fx.NewLoop()
	loop.Add(reg.Hub(), &comm.UnsupportedCommands{})
	go loop.Run(ctx)

	connector, err := NewConnector(strings.Replace(srv.URL, "http", "ws", 1))
	require.NoError(t, err)
	require.Equal(t, DefaultPath, connector.URL.Path)

	found, err := connector.Discover(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, info.Ref, found[0].Ref)
	require.Equal(t, "line follower", found[0].Meta.Description)

	dialCtx, dialCancel := context.WithTimeout(ctx, time.Second)
	defer dialCancel()
	c, err := connector.Connect(dialCtx, info.Ref)
	require.NoError(t, err)
	conn := c.(*ControllerConn)
	events := make(chan fx.Message, 1)
	conn.OnEvent = func(msg fx.Message) { events <- msg }
	go conn.Run(ctx)

	for reg.Hub().Len() == 0 {
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, reg.SendEvent(ctx, &lfmsgs.Collision{Switches: 1}))
	select {
	case msg := <-events:
		require.Equal(t, uint32(1), msg.(*lfmsgs.Collision).Switches)
	case <-time.After(time.Second):
		t.Fatal("event timeout")
	}

	_, err = l1.Call(dialCtx, conn, &lfmsgs.StatusQuery{})
	require.Error(t, err)
}

func TestNewConnector(t *testing.T) {
	c, err := NewConnector("ws://robot:8080/custom")
	require.NoError(t, err)
	require.Equal(t, "http://robot:8080/custom/info", c.infoURL())

	c, err = NewConnector("wss://robot")
	require.NoError(t, err)
	require.Equal(t, "https://robot/l1/info", c.infoURL())

	_, err = NewConnector("mqtt://robot")
	require.Error(t, err)
}
