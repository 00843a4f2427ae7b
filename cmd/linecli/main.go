package main

import (
	"github.com/robotalks/linebot/pkg/cli/sh"
	env "github.com/robotalks/linebot/pkg/l1/env/connector"

	_ "github.com/robotalks/linebot/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
