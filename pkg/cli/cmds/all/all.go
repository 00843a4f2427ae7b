// Package all imports all shell commands.
package all

import (
	// shell commands
	_ "github.com/robotalks/linebot/pkg/cli/cmds/linefollow"
)
