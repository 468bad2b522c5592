package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tunesort/internal/config"
	"tunesort/internal/identify/audd"
	"tunesort/internal/media"
)

// identify probes, samples, and recognizes a single file without touching
// the ledger or the library. Useful for checking a token or debugging a file
// the pipeline could not place.
func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify <file>",
		Short: "Identify a single audio file without organizing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if !media.IsSupportedPath(path) {
				return fmt.Errorf("%s: unsupported audio format", path)
			}

			prober := media.NewFFprobe(cfg.FFprobeBinary())
			probe, err := prober.Probe(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("probe: %w", err)
			}

			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			window := media.ChooseClipWindow(probe.Duration, cfg.ClipDuration(), rng)
			sampler := media.NewFFmpegSampler(cfg.FFmpegBinary())
			clipPath, err := sampler.Sample(cmd.Context(), path, window)
			if err != nil {
				return fmt.Errorf("extract clip: %w", err)
			}
			defer os.Remove(clipPath)

			client, err := audd.New(cfg.AudD.APIToken, cfg.AudD.BaseURL, cfg.RequestTimeout())
			if err != nil {
				return err
			}
			song, err := client.Recognize(cmd.Context(), clipPath)
			if err != nil {
				return fmt.Errorf("recognize: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Artist: %s\n", song.Artist)
			fmt.Fprintf(out, "Title:  %s\n", song.Title)
			if song.Album != "" {
				fmt.Fprintf(out, "Album:  %s\n", song.Album)
			}
			if song.Score > 0 {
				fmt.Fprintf(out, "Score:  %.0f\n", song.Score)
			}
			fmt.Fprintf(out, "Duration: %s\n", probe.Duration.Round(time.Second))
			return nil
		},
	}
	return cmd
}
