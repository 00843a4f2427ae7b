package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/linebot/pkg/drive"
	fx "github.com/robotalks/linebot/pkg/framework"
	"github.com/robotalks/linebot/pkg/l1"
	env "github.com/robotalks/linebot/pkg/l1/env/controller"
	"github.com/robotalks/linebot/pkg/linefollow"
	simbot "github.com/robotalks/linebot/pkg/sim/bots/linebot"
	"github.com/robotalks/linebot/pkg/sim/visualization/see"
)

const (
	imageSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="-150 -150 300 300">
		<g>
			<rect x="-100" y="-110" width="160" height="30" rx="5" />
			<rect x="-100" y="80" width="160" height="30" rx="5" />
			<rect x="-120" y="-80" width="200" height="160" rx="20" fill="none" stroke="black" stroke-width="4" />
			<path d="M 80 -100 A 100 100 0 0 1 80 100" fill="none" stroke="black" stroke-width="6" />
			<rect x="100" y="-40" width="12" height="80" />
		</g>
	</svg>`
)

var colors = map[drive.Color]string{
	drive.Dark:    "#333",
	drive.Red:     "#e33",
	drive.Green:   "#3c3",
	drive.Yellow:  "#ec3",
	drive.Blue:    "#36e",
	drive.Pink:    "#e3e",
	drive.SkyBlue: "#3ce",
	drive.White:   "#ccc",
}

func init() {
	env.SetControllerType("sim-linebot", l1.ControllerMeta{Description: "Simulation: line following robot"})
	env.SetupFlags()
	linefollow.SetupFlags()
	simbot.SetupFlags()
	see.SetupFlags()
}

func main() {
	flag.Parse()

	env := env.NewConfig().MustNewEnv()
	bot, err := simbot.NewConfig().NewBot(env.Config.Info.Ref.Name())
	if err != nil {
		glog.Exit(err)
	}
	lfConf := linefollow.NewConfig()
	opts := lfConf.MustOptions()
	opts.Source, opts.Actuator, opts.Switches = bot, bot, bot
	opts.Events = env.Registrar
	ctl, err := linefollow.New(opts)
	if err != nil {
		glog.Exit(err)
	}
	glog.Infof("%s: table %s on track %s", env.Config.Info.Ref.Name(), ctl.Table().Name(), bot.Track.Name)

	loop := fx.NewLoop()
	loop.Interval = lfConf.Interval
	loop.Add(env, bot, ctl)
	loop.AddRunnable(fx.NamedRun("status", &linefollow.StatusPublisher{Controller: ctl, Sink: env}))

	if seeConf := see.NewConfig(); seeConf.Enabled {
		vis := seeConf.Fit(bot.Track).NewAdapter()
		vis.Track = bot.Track
		vis.Mapper = see.MapObjectFunc(func(obj see.VisibleObject) []see.Object {
			o := see.ObjectFrom("image", obj).With("src", "data:image/svg+xml;utf8,"+imageSVG)
			if b, ok := obj.(*simbot.Bot); ok {
				o = o.Style("color", colors[b.Color()]).
					With("sensors", fmt.Sprintf("%08b", uint8(b.Reading())))
			}
			return []see.Object{o}
		})
		vis.Subscribe(bot)
		loop.Add(vis)
	}

	loop.RunOrFail()
}
