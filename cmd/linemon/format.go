package main

import (
	"reflect"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1/msgs"
)

func formatMsg(msg fx.Message) string {
	name := reflect.Indirect(reflect.ValueOf(msg)).Type().Name()
	if sm, ok := msg.(msgs.SerializableMessage); ok {
		return "[" + name + "] " + sm.Serializable().String()
	}
	return "[" + name + "]"
}
