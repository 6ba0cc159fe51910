// Package cmd provides CLI commands for the multicam binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for all commands.
var (
	// ConfigFlag points at a multicam.yaml config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to multicam.yaml config file",
	}

	// DeviceFlag registers devices manually, bypassing discovery.
	// Format: name@host:port, or host:port for a generated name.
	DeviceFlag = &cli.StringSliceFlag{
		Name:  "device",
		Usage: "Manually register a device (name@host:port); repeatable",
	}

	// WindowFlag bounds the mDNS discovery window.
	WindowFlag = &cli.DurationFlag{
		Name:  "window",
		Usage: "mDNS discovery window",
	}

	// NoDiscoverFlag skips the mDNS browse; only manual devices are used.
	NoDiscoverFlag = &cli.BoolFlag{
		Name:  "no-discover",
		Usage: "Skip mDNS discovery and use only --device entries",
	}

	// VerboseFlag enables structured logs on stderr.
	VerboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable structured logging on stderr",
	}
)

// CommonFlags returns the flags shared by every fleet-facing command.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		DeviceFlag,
		WindowFlag,
		NoDiscoverFlag,
		VerboseFlag,
	}
}
