package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1"
	"github.com/robotalks/linebot/pkg/l1/comm"
	lfmsgs "github.com/robotalks/linebot/pkg/linefollow/msgs"
)

func TestRegistrarOverTCP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	info := l1.ControllerInfo{Ref: l1.ControllerRef{Type: "linebot", ID: "tcp"}}
	reg := NewRegistrar("", info)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go reg.Serve(ln)

	loop := fx.NewLoop()
	loop.Add(reg.Hub(), &comm.UnsupportedCommands{})
	go loop.Run(ctx)

	connector, err := NewConnector("l1://" + ln.Addr().String())
	require.NoError(t, err)

	found, err := connector.Discover(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, info.Ref, found[0].Ref)

	_, err = connector.Connect(ctx, l1.ControllerRef{Type: "linebot", ID: "other"})
	require.Error(t, err)

	c, err := connector.Connect(ctx, info.Ref)
	require.NoError(t, err)
	conn := c.(*comm.ControllerConn)
	events := make(chan fx.Message, 1)
	conn.OnEvent = func(msg fx.Message) { events <- msg }
	go conn.Run(ctx)

	for reg.Hub().Len() == 0 {
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, reg.SendEvent(ctx, &lfmsgs.Collision{Switches: 4}))
	select {
	case msg := <-events:
		require.Equal(t, uint32(4), msg.(*lfmsgs.Collision).Switches)
	case <-time.After(time.Second):
		t.Fatal("event timeout")
	}

	callCtx, callCancel := context.WithTimeout(ctx, time.Second)
	defer callCancel()
	_, err = l1.Call(callCtx, conn, &lfmsgs.StatusQuery{})
	require.Error(t, err)
}

func TestNewConnector(t *testing.T) {
	c, err := NewConnector("l1://robot:7801")
	require.NoError(t, err)
	require.Equal(t, "robot:7801", c.Addr)

	for _, u := range []string{"tcp://robot:7801", "l1:///path"} {
		_, err = NewConnector(u)
		require.Error(t, err, u)
	}
}
