package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	pvo "kreltrack/internal/domain/permission/value_objects"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/domain/shared/events"
	"kreltrack/internal/domain/user"
	"kreltrack/internal/interfaces/board"
	"kreltrack/internal/interfaces/cli/app"
	clicsv "kreltrack/internal/interfaces/cli/csv"
)

const flushTimeout = 10 * time.Second

func NewCommand(opts *app.Options) *cobra.Command {
	var (
		importFile string
		statuses   []string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow request changes on a live board",
		Long: `Open a request board and print every change it applies. Events are delivered in process,
so pass --import to watch the rows of a CSV import arrive; without it the board runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter []vo.Status
			for _, s := range statuses {
				st, err := vo.NewStatus(s)
				if err != nil {
					return err
				}
				filter = append(filter, st)
			}

			return app.RunAs(cmd, opts, func(ctx context.Context, a *app.App, actor user.Actor) error {
				if err := a.Gate.Authorize(ctx, actor, pvo.ResourceRequest, pvo.ActionRead); err != nil {
					return err
				}
				return run(ctx, cmd, a, actor, importFile, filter)
			})
		},
	}
	cmd.Flags().StringVar(&importFile, "import", "", "CSV file to import while watching")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show these statuses")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, a *app.App, actor user.Actor, importFile string, statuses []vo.Status) error {
	out := &lockedWriter{w: cmd.OutOrStdout()}

	b := board.New(a.Requests, a.Bus, a.Logger,
		board.WithStatuses(statuses...),
		board.WithOnChange(func(c board.Change) {
			if c.Request == nil {
				out.printf("%-9s %s\n", c.Kind, c.Number)
				return
			}
			out.printf("%-9s %s v%d %s %s\n", c.Kind, c.Number, c.Request.Version(), c.Request.Status(), c.Request.Requester())
		}),
	)
	if err := b.Open(ctx); err != nil {
		return err
	}
	defer b.Close()

	lookups, err := a.Bus.Subscribe(
		events.ForKinds(events.KindLookupChanged, events.KindEquipmentChanged),
		func(e events.Event) error {
			out.printf("%-9s %s\n", e.Kind, e.Subject)
			return nil
		},
		events.WithName("watch-lookups"),
	)
	if err != nil {
		return err
	}
	defer a.Bus.Unsubscribe(lookups)

	out.printf("board open with %d request(s)\n", b.Len())

	if importFile != "" {
		if err := a.Gate.Authorize(ctx, actor, pvo.ResourceCSV, pvo.ActionImport); err != nil {
			return err
		}
		importErr := clicsv.Import(ctx, cmd, a, actor, importFile)

		flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		if err := a.Bus.Flush(flushCtx); err != nil {
			a.Logger.Warnw("board did not catch up before exit", "error", err)
		}
		out.printf("board holds %d request(s)\n", b.Len())
		return importErr
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	return nil
}

// lockedWriter serialises output from the board and lookup subscribers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}
