// deskctl drives the bridge from the terminal: submit a file of scanned
// assets, clear the directory cache, or tail asset events off the bus.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"deskbridge/internal/batch"
	"deskbridge/internal/config"
	"deskbridge/internal/directory"
	"deskbridge/internal/reconcile"
	"deskbridge/internal/topdesk"
	"deskbridge/pkg/bus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "deskctl",
		Short:         "Utility for driving the deskbridge asset registration bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newAssetsCommand())
	cmd.AddCommand(newCacheCommand())
	cmd.AddCommand(newEventsCommand())
	return cmd
}

// setup builds the TopDesk-facing pieces shared by the direct commands.
func setup(ctx context.Context) (*reconcile.Reconciler, *directory.Cache, error) {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	client, err := topdesk.New(topdesk.Config{
		BaseURL:               cfg.TopDesk.BaseURL,
		Username:              cfg.TopDesk.Username,
		Password:              cfg.TopDesk.Password,
		TemplateID:            cfg.TopDesk.TemplateID,
		StockRoomCapabilityID: cfg.TopDesk.StockRoomCapabilityID,
		Timeout:               cfg.TopDesk.Timeout,
	}, log.Logger)
	if err != nil {
		return nil, nil, err
	}

	dir := directory.New(client, cfg.CacheTTL, log.Logger)
	rec, err := reconcile.New(client, dir, cfg.TopDesk.AllowedTemplates, log.Logger)
	if err != nil {
		return nil, nil, err
	}
	return rec, dir, nil
}

func newAssetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Asset registration operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newAssetsSubmitCommand())
	return cmd
}

func newAssetsSubmitCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a JSON file of scanned assets, one registration at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var records []reconcile.AssetRecord
			if err := json.Unmarshal(raw, &records); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			for _, record := range records {
				if err := batch.Validate(record); err != nil {
					return fmt.Errorf("record %q: %w", record.Tag, err)
				}
			}

			rec, _, err := setup(ctx)
			if err != nil {
				return err
			}

			summary := batch.Run(ctx, rec, log.Logger, records, func(p batch.Progress) {
				fmt.Fprintf(os.Stdout, "\r%d/%d (%d%%)", p.Done, p.Total, p.Percent)
			})
			fmt.Fprintln(os.Stdout)

			for _, result := range summary.Results {
				switch {
				case result.Success:
					fmt.Fprintf(os.Stdout, "%s: %s (%s)\n", result.Tag, result.Operation, result.AssetID)
				default:
					fmt.Fprintf(os.Stdout, "%s: %s\n", result.Tag, result.Error)
				}
			}
			fmt.Fprintf(os.Stdout, "%d succeeded, %d failed, %d skipped\n",
				summary.Succeeded, summary.Failed, summary.Skipped)

			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d records failed", summary.Failed, len(records))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file containing an array of asset records")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Directory cache operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "warm",
		Short: "Prime every directory category from the TopDesk API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, dir, err := setup(ctx)
			if err != nil {
				return err
			}

			if _, err := dir.Campuses(ctx); err != nil {
				return err
			}
			if _, err := dir.Makes(ctx); err != nil {
				return err
			}
			if _, err := dir.Models(ctx); err != nil {
				return err
			}
			if _, err := dir.DeviceTypes(ctx); err != nil {
				return err
			}
			if _, err := dir.Templates(ctx); err != nil {
				return err
			}
			if _, err := dir.StockRooms(ctx); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "directory cache warmed")
			return nil
		},
	})
	return cmd
}

func newEventsCommand() *cobra.Command {
	var natsURL string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail asset registration events from the bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_ = godotenv.Load()
			if natsURL == "" {
				natsURL = os.Getenv("NATS_URL")
			}
			if natsURL == "" {
				return fmt.Errorf("NATS_URL is required")
			}

			b, err := bus.New(natsURL)
			if err != nil {
				return err
			}
			defer b.Close()

			print := func(_ context.Context, data []byte) error {
				fmt.Fprintln(os.Stdout, string(data))
				return nil
			}
			for i, subj := range []string{bus.SubjectAssetCreated, bus.SubjectAssetReassigned} {
				durable := fmt.Sprintf("deskctl-events-%d", i)
				if _, err := b.Subscribe(ctx, subj, durable, print); err != nil {
					return err
				}
			}

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats", "", "NATS endpoint (defaults to NATS_URL)")
	return cmd
}
