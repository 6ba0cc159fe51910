package cmd

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/Gusemmett/multiCamController/types"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Query the status of every device",
		Flags:  CommonFlags(),
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	ctl, err := buildController(c)
	if err != nil {
		return err
	}
	defer ctl.shutdown()

	if err := ctl.populate(c); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	results := ctl.coord.Broadcast(c.Context, types.CommandDeviceStatus, ctl.registry.Snapshot())

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := results[name]
		if !res.OK() {
			fmt.Printf("  %-24s unreachable: %v\n", name, res.Err)
			continue
		}
		status := res.Reply.Status
		if status == "" {
			status = "ok"
		}
		fmt.Printf("  %-24s %s\n", name, status)
	}

	if failed := results.Failed(); len(failed) > 0 {
		return cli.Exit(fmt.Sprintf("%d device(s) unreachable", len(failed)), 1)
	}
	return nil
}
