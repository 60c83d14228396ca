package lookup

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	domainlookup "kreltrack/internal/domain/lookup"
	pvo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/domain/user"
	"kreltrack/internal/interfaces/cli/app"
)

func NewCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Maintain factories, projects, phases, categories, statuses and equipment",
	}
	cmd.AddCommand(
		newListCommand(opts),
		newAddCommand(opts),
		newRenameCommand(opts),
		newActiveCommand(opts, "deactivate", false),
		newActiveCommand(opts, "activate", true),
		newEquipmentCommand(opts),
		newHealthCommand(opts),
	)
	return cmd
}

func newListCommand(opts *app.Options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list TABLE",
		Short: "List the entries of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := domainlookup.ParseTable(args[0])
			if err != nil {
				return err
			}
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				if err := a.Gate.Authorize(ctx, actor, pvo.ResourceLookup, pvo.ActionRead); err != nil {
					return err
				}
				entries, err := a.Lookups.Active(ctx, table)
				if all {
					entries, err = a.Lookups.All(ctx, table)
				}
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tLABEL\tSORT\tACTIVE")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", e.Code, e.Label, e.SortKey, e.Active)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include inactive entries")
	return cmd
}

func newAddCommand(opts *app.Options) *cobra.Command {
	var sortKey int
	cmd := &cobra.Command{
		Use:   "add TABLE CODE [LABEL]",
		Short: "Add an entry",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := domainlookup.ParseTable(args[0])
			if err != nil {
				return err
			}
			label := ""
			if len(args) == 3 {
				label = args[2]
			}
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				return a.Lookup.AddEntry(ctx, actor, table, args[1], label, sortKey)
			})
		},
	}
	cmd.Flags().IntVar(&sortKey, "sort", 0, "Display position")
	return cmd
}

func newRenameCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename TABLE CODE LABEL",
		Short: "Change the label of an entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := domainlookup.ParseTable(args[0])
			if err != nil {
				return err
			}
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				return a.Lookup.RenameEntry(ctx, actor, table, args[1], args[2])
			})
		},
	}
}

func newActiveCommand(opts *app.Options, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " TABLE CODE",
		Short: fmt.Sprintf("Mark an entry %sd", use),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := domainlookup.ParseTable(args[0])
			if err != nil {
				return err
			}
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				return a.Lookup.SetEntryActive(ctx, actor, table, args[1], active)
			})
		},
	}
}

func newEquipmentCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equipment",
		Short: "Maintain test equipment",
	}

	var factory string
	list := &cobra.Command{
		Use:   "list",
		Short: "List equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				if err := a.Gate.Authorize(ctx, actor, pvo.ResourceLookup, pvo.ActionRead); err != nil {
					return err
				}
				items, err := a.Lookup.ListEquipment(ctx, factory)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CONTROL NO\tNAME\tFACTORY\tSPEC\tACTIVE")
				for _, e := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", e.ControlNo, e.Name, e.Factory, e.Spec, e.Active)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().StringVar(&factory, "factory", "", "Only equipment of this factory")

	var (
		eqFactory string
		spec      string
		remark    string
		recipes   []string
		retired   bool
	)
	build := func(args []string) (domainlookup.Equipment, error) {
		if len(recipes) > domainlookup.RecipeSlots {
			return domainlookup.Equipment{}, fmt.Errorf("at most %d recipes", domainlookup.RecipeSlots)
		}
		e := domainlookup.Equipment{
			ControlNo: args[0],
			Name:      args[1],
			Factory:   eqFactory,
			Spec:      spec,
			Remark:    remark,
			Active:    !retired,
		}
		copy(e.Recipes[:], recipes)
		return e, nil
	}
	add := &cobra.Command{
		Use:   "add CONTROL_NO NAME",
		Short: "Register equipment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := build(args)
			if err != nil {
				return err
			}
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				return a.Lookup.AddEquipment(ctx, actor, e)
			})
		},
	}
	update := &cobra.Command{
		Use:   "update CONTROL_NO NAME",
		Short: "Replace the record of existing equipment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := build(args)
			if err != nil {
				return err
			}
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				return a.Lookup.UpdateEquipment(ctx, actor, e)
			})
		},
	}
	for _, c := range []*cobra.Command{add, update} {
		c.Flags().StringVar(&eqFactory, "factory", "", "Owning factory")
		c.Flags().StringVar(&spec, "spec", "", "Specification")
		c.Flags().StringVar(&remark, "remark", "", "Remark")
		c.Flags().StringSliceVar(&recipes, "recipe", nil, "Recipe names, up to five")
	}
	update.Flags().BoolVar(&retired, "retired", false, "Retire the equipment")

	remove := &cobra.Command{
		Use:   "delete CONTROL_NO",
		Short: "Delete equipment no request refers to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				return a.Lookup.DeleteEquipment(ctx, actor, args[0])
			})
		},
	}

	cmd.AddCommand(list, add, update, remove)
	return cmd
}

func newHealthCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the lookup cache state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd, opts, func(ctx context.Context, a *app.App) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TABLE\tENTRIES\tLOADED\tDEGRADED\tLAST ERROR")
				health := a.Lookups.Health()
				for _, table := range domainlookup.AllTables() {
					h := health[table]
					loaded := "-"
					if h.Loaded {
						loaded = h.LoadedAt.Local().Format("15:04:05")
					}
					fmt.Fprintf(tw, "%s\t%d\t%s\t%t\t%s\n", table, h.Entries, loaded, h.Degraded, h.LastError)
				}
				return tw.Flush()
			})
		},
	}
}
