package main

import (
	"flag"

	"github.com/golang/glog"

	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/hw"
	"github.com/robotalks/linebot/pkg/l1"
	env "github.com/robotalks/linebot/pkg/l1/env/controller"
	"github.com/robotalks/linebot/pkg/linefollow"
)

func init() {
	env.SetControllerType("linebot", l1.ControllerMeta{Description: "Line following robot"})
	env.SetupFlags()
	linefollow.SetupFlags()
	hw.SetupFlags()
}

func main() {
	flag.Parse()

	env := env.NewConfig().MustNewEnv()
	lfConf := linefollow.NewConfig()
	opts := lfConf.MustOptions()
	drv, err := hw.NewConfig().Open()
	if err != nil {
		glog.Exit(err)
	}
	opts.Source, opts.Actuator, opts.Switches = drv.Source, drv.Actuator, drv.Switches
	opts.Events = env.Registrar
	ctl, err := linefollow.New(opts)
	if err != nil {
		glog.Exit(err)
	}
	glog.Infof("%s: table %s, driver %s, registries %v",
		env.Config.Info.Ref.Name(), ctl.Table().Name(), drv.Name, env.RegistryURLs)

	loop := fx.NewLoop()
	loop.Interval = lfConf.Interval
	loop.Add(drv, env, ctl)
	loop.AddRunnable(fx.NamedRun("status", &linefollow.StatusPublisher{Controller: ctl, Sink: env}))
	loop.RunOrFail()
}
