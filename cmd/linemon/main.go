package main

import (
	"flag"
	"os"
	"strings"

	"github.com/golang/glog"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1/comm/mqtt"
	"github.com/robotalks/linebot/pkg/l1/msgs"

	_ "github.com/robotalks/linebot/pkg/linefollow/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/"
	topic   = "#"
)

func init() {
	if val := os.Getenv("LINEBOT_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&topic, "topic", topic, "Topic filter under the prefix, e.g. linebot/+/msg.")
}

func main() {
	flag.Parse()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exit(err)
	}
	q.Connect()
	defer q.Close()

	q.Sub(topic, mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
			if len(payload) == 0 {
				glog.Infof("%s: gone", topic)
			} else {
				glog.Infof("%s: %s", topic, string(payload))
			}
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			glog.Warningf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.Warningf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		glog.Infof("%s: #%d %s", topic, typed.Sequence, formatMsg(msg))
	}))

	r := fx.NewRunner().HandleSignals()
	<-r.Context.Done()
}
