package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Gusemmett/multiCamController/types"
)

// RecordCommand returns the record command, the full
// start/wait/stop/retrieve/upload cycle in one invocation.
func RecordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record on every device, then retrieve and upload the files",
		Flags: append(CommonFlags(),
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Recording length; 0 records until interrupted",
			},
		),
		Action: recordAction,
	}
}

func recordAction(c *cli.Context) error {
	ctl, err := buildController(c)
	if err != nil {
		return err
	}
	defer ctl.shutdown()

	if err := ctl.populate(c); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	results, err := ctl.orch.Start(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Printf("Recording on %d of %d device(s)\n",
		len(results)-len(results.Failed()), len(results))
	for _, name := range results.Failed() {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", name, results[name].Err)
	}

	wait(c.Duration("duration"))

	fmt.Println("Stopping...")
	outcome, err := ctl.orch.Stop(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	printOutcome(outcome)
	printStats(ctl)

	if outcome.Status == types.StopUploadFailure || outcome.Status == types.StopDownloadFailure {
		return cli.Exit("", 1)
	}
	return nil
}

// wait blocks for the given duration, or until SIGINT/SIGTERM.
// A zero duration waits for the signal alone.
func wait(d time.Duration) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	if d <= 0 {
		fmt.Println("Recording; press Ctrl-C to stop")
		<-sigs
		return
	}

	fmt.Printf("Recording for %s; press Ctrl-C to stop early\n", d)
	select {
	case <-time.After(d):
	case <-sigs:
	}
}

func printOutcome(o *types.StopOutcome) {
	fmt.Printf("\nOutcome: %s\n  %s\n", o.Status, o.Message)
	if len(o.Downloaded) > 0 {
		fmt.Printf("  Downloaded %d file(s):\n", len(o.Downloaded))
		for _, p := range o.Downloaded {
			fmt.Printf("    %s\n", p)
		}
	}
	if o.SessionFolder != "" {
		fmt.Printf("  Uploaded under: %s\n", o.SessionFolder)
	}
	for _, p := range o.FailedUploads {
		fmt.Fprintf(os.Stderr, "  upload failed, retained: %s\n", p)
	}
	for _, p := range o.FailedCleanup {
		fmt.Fprintf(os.Stderr, "  local deletion failed: %s\n", p)
	}
}

func printStats(ctl *controller) {
	s := ctl.stats.Snapshot()
	fmt.Printf("\nSession %s:\n", s.SessionID)
	fmt.Printf("  commands   %d sent, %d failed\n", s.CommandsSent, s.CommandsFailed)
	fmt.Printf("  downloads  %d ok, %d failed, %d byte(s)\n",
		s.FilesDownloaded, s.DownloadsFailed, s.BytesDownloaded)
	if s.FilesUploaded > 0 || s.UploadsFailed > 0 {
		fmt.Printf("  uploads    %d ok, %d failed, %d cleaned up\n",
			s.FilesUploaded, s.UploadsFailed, s.FilesDeleted)
	}
}
