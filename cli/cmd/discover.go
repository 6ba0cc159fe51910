package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// DiscoverCommand returns the discover command.
func DiscoverCommand() *cli.Command {
	return &cli.Command{
		Name:   "discover",
		Usage:  "Browse the network for multiCam devices",
		Flags:  CommonFlags(),
		Action: discoverAction,
	}
}

func discoverAction(c *cli.Context) error {
	ctl, err := buildController(c)
	if err != nil {
		return err
	}
	defer ctl.shutdown()

	if err := ctl.populate(c); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	devices := ctl.registry.Snapshot()
	fmt.Printf("Found %d device(s):\n", len(devices))
	for _, d := range devices {
		kind := "phone"
		if d.Meta["kind"] == "companion" {
			kind = "local server"
		}
		fmt.Printf("  %-24s %-21s (%s)\n", d.Name, d.HostPort(), kind)
	}
	return nil
}
