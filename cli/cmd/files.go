package cmd

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/Gusemmett/multiCamController/types"
)

// FilesCommand returns the files command.
func FilesCommand() *cli.Command {
	return &cli.Command{
		Name:   "files",
		Usage:  "List recordings stored on every device",
		Flags:  CommonFlags(),
		Action: filesAction,
	}
}

func filesAction(c *cli.Context) error {
	ctl, err := buildController(c)
	if err != nil {
		return err
	}
	defer ctl.shutdown()

	if err := ctl.populate(c); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	results := ctl.coord.Broadcast(c.Context, types.CommandListFiles, ctl.registry.Snapshot())

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var totalFiles int
	var totalBytes int64
	for _, name := range names {
		res := results[name]
		if !res.OK() {
			fmt.Printf("%s: unreachable: %v\n", name, res.Err)
			continue
		}
		files := res.Reply.Files
		fmt.Printf("%s (%d file(s)):\n", name, len(files))
		for _, f := range files {
			fmt.Printf("  %-36s %-32s %12d  %s\n",
				f.FileID, f.FileName, f.FileSize,
				f.Created().Format("2006-01-02 15:04:05"))
			totalBytes += f.FileSize
		}
		totalFiles += len(files)
	}

	fmt.Printf("\n%d file(s), %d byte(s) across %d device(s)\n",
		totalFiles, totalBytes, len(names))

	if failed := results.Failed(); len(failed) > 0 {
		return cli.Exit(fmt.Sprintf("%d device(s) unreachable", len(failed)), 1)
	}
	return nil
}
