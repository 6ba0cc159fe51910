package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Gusemmett/multiCamController/types"
)

// VersionCommand returns the version command. It never touches the
// network or the config file.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("multicam %s (commit: %s)\n", types.Version, commit)
			return nil
		},
	}
}
