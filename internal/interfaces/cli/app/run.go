package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kreltrack/internal/domain/request"
	"kreltrack/internal/domain/user"
)

// Run wires the application for one command and closes it afterwards.
func Run(cmd *cobra.Command, opts *Options, fn func(ctx context.Context, a *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := New(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// RunAs is Run for commands that act on behalf of the logged-in user.
func RunAs(cmd *cobra.Command, opts *Options, fn func(ctx context.Context, a *App, actor user.Actor) error) error {
	return Run(cmd, opts, func(ctx context.Context, a *App) error {
		actor, err := a.Actor(ctx)
		if err != nil {
			return fmt.Errorf("%w (log in with `kreltrack user login` and pass --token)", err)
		}
		return fn(ctx, a, actor)
	})
}

// ParseAssignments turns field=value pairs into a patch.
func ParseAssignments(pairs []string) (request.Patch, error) {
	var p request.Patch
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return p, fmt.Errorf("expected field=value, got %q", pair)
		}
		if err := p.SetByName(strings.TrimSpace(name), value); err != nil {
			return p, err
		}
	}
	return p, nil
}

var listColumns = []string{
	request.FieldStatus,
	request.FieldRequester,
	request.FieldFactory,
	request.FieldProject,
	request.FieldEquipment,
	request.FieldPlanStart,
	request.FieldPlanEnd,
}

// PrintRequests writes one aligned line per request.
func PrintRequests(w io.Writer, list []*request.Request) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "NUMBER\tVER\t%s\n", strings.ToUpper(strings.Join(listColumns, "\t")))
	for _, r := range list {
		values := make([]string, len(listColumns))
		for i, col := range listColumns {
			values[i] = r.FieldValue(col)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Number(), r.Version(), strings.Join(values, "\t"))
	}
	return tw.Flush()
}

// PrintRequest writes every field of r, one per line.
func PrintRequest(w io.Writer, r *request.Request) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "number\t%s\n", r.Number())
	var p request.Patch
	for _, nf := range p.Fields() {
		fmt.Fprintf(tw, "%s\t%s\n", nf.Name, r.FieldValue(nf.Name))
	}
	fmt.Fprintf(tw, "version\t%d\n", r.Version())
	fmt.Fprintf(tw, "created\t%s by %s\n", r.CreatedAt().Format("2006-01-02 15:04:05Z"), r.CreatedBy())
	fmt.Fprintf(tw, "updated\t%s by %s\n", r.UpdatedAt().Format("2006-01-02 15:04:05Z"), r.UpdatedBy())
	return tw.Flush()
}

// PrintCounts writes a key/count table sorted by key.
func PrintCounts[K ~string](w io.Writer, counts map[K]int64) error {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%d\n", k, counts[k])
	}
	return tw.Flush()
}
