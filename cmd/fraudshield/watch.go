package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pedro-hbl/fraudshield-stream/internal/app"
	"github.com/pedro-hbl/fraudshield-stream/internal/metrics"
	"github.com/pedro-hbl/fraudshield-stream/internal/render"
	"github.com/pedro-hbl/fraudshield-stream/internal/stream"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

const watchHelp = `Commands:
  p        pause or resume the stream
  m        mute or unmute the alert sound
  d        toggle desktop notifications
  f        toggle dashboard focus
  /term    filter by id or location (/ alone clears)
  q        quit
`

func watchCmd() *cobra.Command {
	var (
		duration   time.Duration
		refresh    time.Duration
		sessionOut string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor the transaction stream in the terminal",
		Long: `Monitor the transaction stream in the terminal.

` + watchHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			a, err := app.New(ctx, cfg, app.WithOutput(out))
			if err != nil {
				return err
			}

			w := newWatcher(a, out)
			if err := a.Start(); err != nil {
				a.Close()
				return err
			}
			w.run(ctx, cmd.InOrStdin(), refresh)

			res := a.Close()
			logResult(res)
			if res.Session != nil {
				render.SessionSummary(out, res.Session)
			}

			if sessionOut != "" {
				if err := render.WriteSessionFile(sessionOut, a.SessionFile(res)); err != nil {
					return err
				}
				fmt.Fprintf(out, "Session saved to %s\n", sessionOut)
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long (0 runs until q)")
	cmd.Flags().DurationVar(&refresh, "refresh", time.Second, "how often to redraw when new transactions arrive")
	cmd.Flags().StringVarP(&sessionOut, "session-out", "o", "", "write the session to this JSON file for `report`")

	return cmd
}

type watcher struct {
	app      *app.App
	out      io.Writer
	search   string
	drawnAt  int64 // ingested count at the last draw
	statuses chan stream.Status
}

func newWatcher(a *app.App, out io.Writer) *watcher {
	w := &watcher{
		app:      a,
		out:      out,
		statuses: make(chan stream.Status, 8),
	}
	a.Monitor.OnStatusChange(func(s stream.Status) {
		select {
		case w.statuses <- s:
		default:
		}
	})
	return w
}

func (w *watcher) run(ctx context.Context, in io.Reader, refresh time.Duration) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	fmt.Fprint(w.out, watchHelp)
	w.draw()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				// stdin closed; keep streaming until the context ends
				lines = nil
				continue
			}
			if w.handle(ctx, line) {
				return
			}
		case s := <-w.statuses:
			fmt.Fprintf(w.out, "[%s]\n", s.Label())
		case <-ticker.C:
			if w.ingested() != w.drawnAt {
				w.draw()
			}
		}
	}
}

// handle applies one command line and reports whether to quit
func (w *watcher) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)

	switch {
	case line == "q":
		return true

	case line == "p":
		connect := w.app.Monitor.Status() == stream.Disconnected
		if err := w.app.Monitor.SetConnected(connect); err != nil {
			log.Printf("Failed to change connection: %v", err)
		}

	case line == "m":
		if w.app.Preferences.ToggleSound() {
			fmt.Fprintln(w.out, "Sound on")
		} else {
			fmt.Fprintln(w.out, "Sound muted")
		}

	case line == "d":
		enabled, err := w.app.Preferences.ToggleDesktop(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(w.out, "Desktop notifications unavailable: %v\n", err)
		case enabled:
			fmt.Fprintln(w.out, "Desktop notifications on")
		default:
			fmt.Fprintln(w.out, "Desktop notifications off")
		}

	case line == "f":
		focused := !w.app.Desktop.Focused()
		w.app.Desktop.SetFocused(focused)
		if focused {
			fmt.Fprintln(w.out, "Dashboard focused")
		} else {
			fmt.Fprintln(w.out, "Dashboard in background")
		}

	case strings.HasPrefix(line, "/"):
		w.search = strings.TrimSpace(line[1:])
		w.draw()

	case line == "":
		w.draw()

	default:
		fmt.Fprint(w.out, watchHelp)
	}
	return false
}

func (w *watcher) visible() []transactions.Transaction {
	if w.search == "" {
		return w.app.Monitor.Transactions()
	}
	return w.app.Monitor.Search(w.search)
}

// ingested counts every transaction the monitor has taken in. Ids may
// repeat, so the head of the history cannot tell whether anything changed.
func (w *watcher) ingested() int64 {
	c := w.app.Monitor.Stats().Counters
	return c[metrics.CounterFraud] + c[metrics.CounterPending] + c[metrics.CounterLegitimate]
}

func (w *watcher) draw() {
	w.drawnAt = w.ingested()
	fmt.Fprintf(w.out, "\nFraudShield [%s]", w.app.Monitor.Status().Label())
	if w.search != "" {
		fmt.Fprintf(w.out, " search=%q", w.search)
	}
	fmt.Fprintln(w.out)
	render.TransactionTable(w.out, w.visible())
}

func logResult(res *app.Result) {
	if res.Archive != nil {
		log.Printf("Archive: %d written, %d failed, %d dropped",
			res.Archive.Written, res.Archive.Failed, res.Archive.Dropped)
	}
	if res.Session != nil {
		log.Printf("Session %s ended after %v", res.Session.SessionID, res.Session.Duration)
	}
}
