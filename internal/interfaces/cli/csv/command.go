package csv

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	pvo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/domain/user"
	"kreltrack/internal/interfaces/cli/app"
)

func NewCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Import or export requests as CSV",
	}
	cmd.AddCommand(newImportCommand(opts), newExportCommand(opts), newTemplateCommand(opts))
	return cmd
}

func newImportCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create one request per CSV row",
		Long: `Create one request per CSV row. Files may be UTF-8 (with or without BOM) or Windows-1252.
Rows without a requester are skipped; the request number column is ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				if err := a.Gate.Authorize(ctx, actor, pvo.ResourceCSV, pvo.ActionImport); err != nil {
					return err
				}
				return Import(ctx, cmd, a, actor, args[0])
			})
		},
	}
}

// Import runs one file through the transfer service and prints the outcome.
func Import(ctx context.Context, cmd *cobra.Command, a *app.App, actor user.Actor, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := a.Transfer.Import(ctx, f, actor)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, rowErr := range result.Errors {
		fmt.Fprintln(cmd.ErrOrStderr(), rowErr.Error())
	}
	fmt.Fprintf(out, "imported %d, skipped %d, failed %d\n", len(result.Imported), result.Skipped, len(result.Errors))
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d row(s) were not imported", len(result.Errors))
	}
	return nil
}

func newExportCommand(opts *app.Options) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write requests to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter request.Filter
			for _, s := range statuses {
				st, err := vo.NewStatus(s)
				if err != nil {
					return err
				}
				filter.Statuses = append(filter.Statuses, st)
			}
			filter.SortBy = "number"
			filter.SortOrder = "asc"

			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				if err := a.Gate.Authorize(ctx, actor, pvo.ResourceCSV, pvo.ActionExport); err != nil {
					return err
				}
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				n, err := a.Transfer.Export(ctx, f, filter)
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d request(s) to %s\n", n, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only these statuses")
	return cmd
}

func newTemplateCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "template FILE",
		Short: "Write an import template with localised headers and a sample row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, opts, func(ctx context.Context, a *app.App) error {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				err = a.Transfer.Template(f, time.Now())
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "template written to %s\n", args[0])
				return nil
			})
		},
	}
}
