package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1"
	"github.com/robotalks/linebot/pkg/l1/comm"
	"github.com/robotalks/linebot/pkg/l1/msgs"
)

// Topic suffixes under <type>/<id>/.
const (
	TopicMeta   = "meta"
	TopicStatus = "status"
	TopicCmd    = "cmd"
	TopicMsg    = "msg"
)

// ControllerTopic is the topic of a controller, relative to the prefix.
func ControllerTopic(ref l1.ControllerRef, suffix string) string {
	return ref.Name() + "/" + suffix
}

// Registrar implements l1.Registrar using MQTT. The retained meta topic
// announces the controller and is cleared by the will when the controller
// goes away.
type Registrar struct {
	Queue *Queue
	Info  l1.ControllerInfo

	metaJSON  []byte
	registrar comm.Registrar
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.ControllerInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, broker, err := ParseBrokerURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(broker.TopicPrefix+ControllerTopic(info.Ref, TopicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("linebot:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:    NewQueue(opts, broker.TopicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	r.Queue.QoS = broker.QoS
	r.Queue.OnConnect = func(*Queue) { r.onConnected() }
	r.registrar.Init(NewPacketReadWriter(r.Queue).ForController(info.Ref))
	return r, nil
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.registrar.SendEvent(ctx, msg)
}

// PublishStatus publishes a retained snapshot so late subscribers see the
// last known state.
func (r *Registrar) PublishStatus(msg fx.Message) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	payload, err := typed.Encode()
	if err != nil {
		return err
	}
	token := r.Queue.PubWith(ControllerTopic(r.Info.Ref, TopicStatus), payload, r.Queue.QoS, true)
	if !token.WaitTimeout(time.Second) {
		return context.DeadlineExceeded
	}
	return token.Error()
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.registrar)
	loop.AddRunnable(r)
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	if token := r.Queue.Connect(); token.Wait() && token.Error() != nil {
		glog.Warningf("MQTT connect error: %v, retrying in background", token.Error())
	}
	<-ctx.Done()
	r.Queue.PubWith(ControllerTopic(r.Info.Ref, TopicMeta), nil, 1, true).WaitTimeout(time.Second)
	r.Queue.Close()
	return nil
}

func (r *Registrar) onConnected() {
	r.Queue.PubWith(ControllerTopic(r.Info.Ref, TopicMeta), r.metaJSON, 1, true)
}
