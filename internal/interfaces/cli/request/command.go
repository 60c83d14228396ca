package request

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apprequest "kreltrack/internal/application/request"
	pvo "kreltrack/internal/domain/permission/value_objects"
	domainrequest "kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/domain/user"
	"kreltrack/internal/interfaces/cli/app"
	"kreltrack/internal/shared/biztime"
)

func NewCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "request",
		Aliases: []string{"req"},
		Short:   "Create, inspect and edit test requests",
	}
	cmd.AddCommand(
		newCreateCommand(opts),
		newGetCommand(opts),
		newListCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newGanttCommand(opts),
		newStatsCommand(opts),
	)
	return cmd
}

func newCreateCommand(opts *app.Options) *cobra.Command {
	var set []string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a Draft request",
		Example: `  kreltrack request create --set requester=Lan --set factory=F1 --set project=P1 --set phase=EVT --set category=Drop`,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := app.ParseAssignments(set)
			if err != nil {
				return err
			}
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				number, err := a.Requests.Create(ctx, patch, actor)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), number)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&set, "set", "s", nil, "field=value, repeatable")
	return cmd
}

func newGetCommand(opts *app.Options) *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "get NUMBER",
		Short: "Show one request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				if err := a.Gate.Authorize(ctx, actor, pvo.ResourceRequest, pvo.ActionRead); err != nil {
					return err
				}
				r, err := a.Requests.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !asHTML {
					return app.PrintRequest(cmd.OutOrStdout(), r)
				}
				return printHTML(cmd, a, r)
			})
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "Render detail, test condition and note as HTML")
	return cmd
}

// printHTML renders the free-text fields for pasting into mail or reports.
func printHTML(cmd *cobra.Command, a *app.App, r *domainrequest.Request) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "<h2>%s</h2>\n", r.Number())
	for _, f := range []struct{ title, body string }{
		{"Detail", r.Detail()},
		{"Test condition", r.TestCondition()},
		{"Note", r.Note()},
	} {
		if strings.TrimSpace(f.body) == "" {
			continue
		}
		html, err := a.Text.ToHTML(f.body)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "<h3>%s</h3>\n%s", f.title, html)
	}
	return nil
}

func newListCommand(opts *app.Options) *cobra.Command {
	var (
		statuses  []string
		requester string
		equipment []string
		from      string
		to        string
		search    string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domainrequest.Filter{
				Requester: requester,
				Equipment: equipment,
				Search:    search,
				Limit:     limit,
				SortBy:    "number",
				SortOrder: "desc",
			}
			for _, s := range statuses {
				st, err := vo.NewStatus(s)
				if err != nil {
					return err
				}
				filter.Statuses = append(filter.Statuses, st)
			}
			if from != "" {
				t, err := biztime.ParseDateTime(from)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				start := biztime.StartOfDayUTC(t)
				filter.From = &start
			}
			if to != "" {
				t, err := biztime.ParseDateTime(to)
				if err != nil {
					return fmt.Errorf("--to: %w", err)
				}
				end := biztime.EndOfDayUTC(t)
				filter.To = &end
			}

			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				if err := a.Gate.Authorize(ctx, actor, pvo.ResourceRequest, pvo.ActionRead); err != nil {
					return err
				}
				list, err := a.Requests.List(ctx, filter)
				if err != nil {
					return err
				}
				return app.PrintRequests(cmd.OutOrStdout(), list)
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only these statuses")
	cmd.Flags().StringVar(&requester, "requester", "", "Only this requester")
	cmd.Flags().StringSliceVar(&equipment, "equipment", nil, "Only these equipment control numbers")
	cmd.Flags().StringVar(&from, "from", "", "Request date from (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Request date to (YYYY-MM-DD)")
	cmd.Flags().StringVar(&search, "search", "", "Text to look for in number, requester, detail and note")
	cmd.Flags().IntVar(&limit, "limit", 200, "Maximum rows")
	return cmd
}

func newUpdateCommand(opts *app.Options) *cobra.Command {
	var (
		set             []string
		expectedVersion int
	)
	cmd := &cobra.Command{
		Use:     "update NUMBER",
		Short:   "Change fields of a request",
		Example: `  kreltrack request update 20260302-001 --set status=Submitted --expected-version 1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := app.ParseAssignments(set)
			if err != nil {
				return err
			}
			var updateOpts []apprequest.UpdateOption
			if expectedVersion > 0 {
				updateOpts = append(updateOpts, apprequest.WithExpectedVersion(expectedVersion))
			}
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				r, err := a.Requests.Update(ctx, args[0], patch, actor, updateOpts...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now at version %d (%s)\n", r.Number(), r.Version(), r.Status())
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&set, "set", "s", nil, "field=value, repeatable; an empty value clears the field")
	cmd.Flags().IntVar(&expectedVersion, "expected-version", 0, "Fail with a conflict unless the stored version matches")
	return cmd
}

func newDeleteCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NUMBER",
		Short: "Delete a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				if err := a.Requests.Delete(ctx, args[0], actor); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted (%s)\n", args[0], a.Requests.DeletePolicy())
				return nil
			})
		},
	}
}

func newGanttCommand(opts *app.Options) *cobra.Command {
	var (
		days      int
		equipment []string
	)
	cmd := &cobra.Command{
		Use:   "gantt [START]",
		Short: "List requests scheduled in a window",
		Long:  `List requests whose plan or actual start falls between START (default today) and START+days.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := biztime.StartOfDayUTC(time.Now())
			if len(args) == 1 {
				t, err := biztime.ParseDateTime(args[0])
				if err != nil {
					return err
				}
				start = biztime.StartOfDayUTC(t)
			}
			end := start.AddDate(0, 0, days)
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				if err := a.Gate.Authorize(ctx, actor, pvo.ResourceRequest, pvo.ActionRead); err != nil {
					return err
				}
				list, err := a.Requests.GanttWindow(ctx, start, end, equipment)
				if err != nil {
					return err
				}
				return app.PrintRequests(cmd.OutOrStdout(), list)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "Window length in days")
	cmd.Flags().StringSliceVar(&equipment, "equipment", nil, "Only these equipment control numbers")
	return cmd
}

func newStatsCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count requests by status and list requesters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				if err := a.Gate.Authorize(ctx, actor, pvo.ResourceRequest, pvo.ActionRead); err != nil {
					return err
				}
				counts, err := a.Requests.CountByStatus(ctx)
				if err != nil {
					return err
				}
				requesters, err := a.Requests.DistinctRequesters(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if err := app.PrintCounts(out, counts); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nrequesters: %s\n", strings.Join(requesters, ", "))
				return nil
			})
		},
	}
}
