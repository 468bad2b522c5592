package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tunesort/internal/config"
	"tunesort/internal/queue"
	"tunesort/internal/report"
	"tunesort/internal/workflow"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun       bool
		delaySecs    float64
		clipDuration int
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "organize [input-dir]",
		Short: "Identify every audio file in a directory and move it into the library",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				expanded, err := config.ExpandPath(args[0])
				if err != nil {
					return err
				}
				cfg.Paths.InputDir = expanded
			}
			if cfg.Paths.InputDir == "" {
				return errors.New("no input directory: pass one as an argument or set paths.input_dir")
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.Organizer.DryRun = dryRun
			}
			if cmd.Flags().Changed("delay") {
				cfg.Identification.CallDelaySeconds = delaySecs
			}
			if cmd.Flags().Changed("clip-duration") {
				cfg.Identification.ClipDurationSeconds = clipDuration
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closeLogs, err := ctx.buildLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLogs()

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			engine, err := workflow.NewEngine(cfg, store, logger)
			if err != nil {
				return err
			}

			doc, runErr := engine.Run(cmd.Context())
			printSummary(cmd, doc)
			return runErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Simulate the run without moving files")
	cmd.Flags().Float64Var(&delaySecs, "delay", 0, "Seconds to wait between recognition calls")
	cmd.Flags().IntVar(&clipDuration, "clip-duration", 0, "Fingerprint clip length in seconds")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}

func printSummary(cmd *cobra.Command, doc report.Document) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Total files", strconv.Itoa(doc.Stats.Total)},
		{"Organized", strconv.Itoa(doc.Stats.Organized)},
		{"Duplicates", strconv.Itoa(doc.Stats.Duplicates)},
		{"Failed", strconv.Itoa(doc.Stats.Failed)},
		{"Success rate", fmt.Sprintf("%.1f%%", doc.Stats.SuccessRate)},
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run summary", ""},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))

	colorize := shouldColorize(out)
	switch {
	case doc.DryRun:
		fmt.Fprintln(out, renderStatusLine(statusWarn, "Dry run: no files were moved.", colorize))
	case doc.Stats.Failed > 0:
		fmt.Fprintln(out, renderStatusLine(statusWarn,
			fmt.Sprintf("%d file(s) could not be organized; see the report for details.", doc.Stats.Failed), colorize))
	default:
		fmt.Fprintln(out, renderStatusLine(statusOK, "All files processed.", colorize))
	}
}
