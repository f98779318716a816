package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/maheshrc27/campaignflow/internal/scheduler"
	"github.com/spf13/cobra"
)

var sweepKind string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Dispatch every due campaign and/or post once, then exit",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().StringVarP(&sweepKind, "kind", "k", "all", "What to sweep: campaigns, posts or all")
}

func runSweep(cmd *cobra.Command, args []string) error {
	app, err := newApplication(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	var targets []*scheduler.Scheduler
	switch sweepKind {
	case "campaigns":
		targets = append(targets, app.campaigns)
	case "posts":
		targets = append(targets, app.posts)
	case "all":
		targets = append(targets, app.campaigns, app.posts)
	default:
		return fmt.Errorf("unknown kind %q (want campaigns, posts or all)", sweepKind)
	}

	results := make([]scheduler.SweepResult, 0, len(targets))
	for _, s := range targets {
		res, err := s.ProcessDue(cmd.Context())
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
