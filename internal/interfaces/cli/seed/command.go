package seed

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kreltrack/internal/domain/user"
	infraseed "kreltrack/internal/infrastructure/seed"
	"kreltrack/internal/interfaces/cli/app"
)

func NewCommand(opts *app.Options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load lookup tables from a YAML file",
		Long:  `Add the factories, projects, phases, categories, statuses and equipment listed in a seed file. Entries that already exist are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				path := file
				if path == "" {
					path = a.Config.Lookup.SeedFile
				}
				if path == "" {
					return fmt.Errorf("no seed file given; use --file or lookup.seed_file")
				}
				f, err := infraseed.Load(path)
				if err != nil {
					return err
				}
				report, err := infraseed.Apply(ctx, a.Lookup, actor, f, a.Logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d, already present %d\n", report.Added, report.Existing)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Seed file (default: lookup.seed_file)")
	return cmd
}
