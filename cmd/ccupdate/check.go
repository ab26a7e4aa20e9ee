package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	appErrors "github.com/corrreia/ccupdater/internal/errors"
	"github.com/corrreia/ccupdater/internal/plugin"
	"github.com/corrreia/ccupdater/internal/updater"
)

func newCheckCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report the latest release of every group without installing",
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

			groups, err := plugin.Groups(cfg, flags.goos, flags.goarch)
			if err != nil {
				return err
			}
			client := plugin.NewClient(cfg, nil)
			checkers := plugin.Checkers(groups, client, plugin.NewInstaller(cfg, client), store)

			if err := runCheck(cmd.Context(), cmd.OutOrStdout(), checkers); err != nil {
				return &ExitError{Code: 2, Err: err}
			}
			return nil
		},
	}
}

// runCheck prints installed and latest tags per group. Groups with no
// published release are reported, not treated as failures.
func runCheck(ctx context.Context, w io.Writer, checkers []*updater.Checker) error {
	var errs []error
	for _, c := range checkers {
		name := c.Group().Name
		installed := c.Installed(ctx)

		rel, err := c.Latest(ctx)
		switch {
		case appErrors.IsCode(err, appErrors.CodeNotFound):
			fmt.Fprintf(w, "%-12s %s installed %s\n", name, SubtitleStyle.Render("no release"), orNone(installed))
		case err != nil:
			fmt.Fprintf(w, "%-12s %s %v\n", name, ErrorStyle.Render("error"), err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		case installed == rel.TagName:
			fmt.Fprintf(w, "%-12s %s %s\n", name, SuccessStyle.Render("up to date"), installed)
		default:
			fmt.Fprintf(w, "%-12s %s %s -> %s\n", name, WarningStyle.Render("update available"), orNone(installed), rel.TagName)
		}
	}
	return errors.Join(errs...)
}
