package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/corrreia/ccupdater/internal/marker"
)

func newMarkersCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "markers",
		Short: "List installed-version markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			return runMarkers(cmd.Context(), cmd.OutOrStdout(), store)
		},
	}
}

func runMarkers(ctx context.Context, w io.Writer, store marker.Store) error {
	entries, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing markers: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("No markers recorded."))
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	for _, e := range entries {
		installed := "unknown"
		if !e.InstalledAt.IsZero() {
			installed = humanize.Time(e.InstalledAt)
		}
		fmt.Fprintf(w, "%-40s %-12s %s\n", e.Key, e.Tag, SubtitleStyle.Render(installed))
	}
	return nil
}
