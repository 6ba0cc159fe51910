package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// DownloadCommand returns the download command for pulling one file off
// one device by its recording token.
func DownloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download one recording from one device",
		Flags: append(CommonFlags(),
			&cli.StringFlag{
				Name:     "from",
				Usage:    "Device name holding the file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "file-id",
				Usage:    "Recording token to retrieve",
				Required: true,
			},
		),
		Action: downloadAction,
	}
}

func downloadAction(c *cli.Context) error {
	ctl, err := buildController(c)
	if err != nil {
		return err
	}
	defer ctl.shutdown()

	if err := ctl.populate(c); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	name := c.String("from")
	device, ok := ctl.registry.Get(name)
	if !ok {
		return cli.Exit(fmt.Sprintf("device %q not found", name), 1)
	}

	res := ctl.coord.Download(c.Context, device, c.String("file-id"))
	if !res.OK() {
		return cli.Exit(fmt.Sprintf("download from %s failed: %v", name, res.Err), 1)
	}

	fmt.Printf("Saved %s\n", res.Path)
	return nil
}
