package physics

import (
	"context"

	"github.com/robotalks/linebot/pkg/drive"
	fx "github.com/robotalks/linebot/pkg/framework"
)

// Context provides the simulation context.
type Context interface {
	fx.TimeSource
	Context() context.Context
}

// DiffDrive simulates a differential drivetrain.
type DiffDrive interface {
	Apply(Context, drive.Command)
	Execute(Context)
}
