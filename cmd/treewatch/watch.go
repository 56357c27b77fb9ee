//go:build linux

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xmhha/treewatch/pkg/aggregator"
	"github.com/0xmhha/treewatch/pkg/config"
	"github.com/0xmhha/treewatch/pkg/display"
	"github.com/0xmhha/treewatch/pkg/filter"
	"github.com/0xmhha/treewatch/pkg/journal"
	"github.com/0xmhha/treewatch/pkg/logger"
	"github.com/0xmhha/treewatch/pkg/watcher"
)

// signalPollInterval bounds each read so that signals are noticed promptly.
const signalPollInterval = 250 * time.Millisecond

// watchCommand runs the tree watcher loop.
type watchCommand struct {
	global *globalFlags

	events    []string
	exclude   []string
	timeout   time.Duration
	count     int
	journal   bool
	dbPath    string
	format    string
	color     string
	noSummary bool
	reload    bool
}

func newWatchCommand(global *globalFlags) *cobra.Command {
	c := &watchCommand{global: global}

	cmd := &cobra.Command{
		Use:   "watch [roots...]",
		Short: "Watch directory trees and print events",
		Long: `Watch one or more directory trees and print each event as it arrives.

Roots default to the configured roots. The loop ends on SIGINT or SIGTERM,
after --count events, or once --timeout passes without an event. A summary
of the run is written to stderr when the loop ends.`,
		Example: `  treewatch watch /srv/data
  treewatch watch --events create,delete,move --exclude '**/.git/**' .
  treewatch watch --journal --format json /var/spool`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Execute(cmd, args)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&c.events, "events", nil, "event kinds to report (e.g. create,delete,move,all)")
	f.StringSliceVar(&c.exclude, "exclude", nil, "glob pattern of paths to hide (repeatable)")
	f.DurationVar(&c.timeout, "timeout", 0, "exit after this long without events (0 waits forever)")
	f.IntVar(&c.count, "count", 0, "exit after this many events (0 is unlimited)")
	f.BoolVar(&c.journal, "journal", false, "record events in the journal")
	f.StringVar(&c.dbPath, "db", "", "journal database path")
	f.StringVar(&c.format, "format", "", "output format (text, json)")
	f.StringVar(&c.color, "color", "auto", "color output (auto, always, never)")
	f.BoolVar(&c.noSummary, "no-summary", false, "do not print a summary at exit")
	f.BoolVar(&c.reload, "reload", true, "apply log level and exclude changes when the config file changes")

	return cmd
}

// applyFlags overlays explicitly set flags onto cfg.
func (c *watchCommand) applyFlags(cmd *cobra.Command, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		cfg.Roots = args
	}

	flags := cmd.Flags()
	if flags.Changed("events") {
		cfg.Events = c.events
	}
	if flags.Changed("exclude") {
		cfg.Exclude = c.exclude
	}
	if flags.Changed("timeout") {
		cfg.Read.Timeout = c.timeout
	}
	if flags.Changed("journal") {
		cfg.Journal.Enabled = c.journal
	}
	if flags.Changed("db") {
		cfg.Journal.DBPath = c.dbPath
	}
	if flags.Changed("format") {
		cfg.Output.Format = c.format
	}

	if c.count < 0 {
		return fmt.Errorf("invalid --count %d: must be >= 0", c.count)
	}

	return cfg.Validate()
}

// Execute runs the watch command.
func (c *watchCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(c.global)
	if err != nil {
		return err
	}
	if err := c.applyFlags(cmd, cfg, args); err != nil {
		return err
	}

	log := newLogger(cfg)
	out := cmd.OutOrStdout()

	formatter, err := newFormatter(cfg, c.color, out)
	if err != nil {
		return err
	}

	mask, err := cfg.Mask()
	if err != nil {
		return err
	}

	matcher, err := filter.New(cfg.Exclude)
	if err != nil {
		return err
	}

	roots, err := absRoots(cfg.Roots)
	if err != nil {
		return err
	}

	w, err := watcher.New(watcher.Config{Roots: roots, Mask: mask}, log)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			log.Error("failed to close watcher", "error", closeErr)
		}
	}()

	s := &watchSession{
		cmd:       c,
		watcher:   w,
		formatter: formatter,
		agg:       aggregator.New(aggregator.Config{TopN: 5}),
		roots:     roots,
		out:       out,
		log:       log,
	}
	s.matcher.Store(matcher)

	if cfg.Journal.Enabled {
		j, openErr := journal.Open(journal.Config{DBPath: cfg.Journal.DBPath}, log)
		if openErr != nil {
			return fmt.Errorf("failed to open journal: %w", openErr)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				log.Error("failed to close journal", "error", closeErr)
			}
		}()

		run, beginErr := j.BeginRun(roots, mask)
		if beginErr != nil {
			return fmt.Errorf("failed to start journal run: %w", beginErr)
		}
		s.journal = j
		s.runID = run.ID
		fmt.Fprintf(cmd.ErrOrStderr(), "Journal run: %s\n", run.ID)
	}

	if c.reload {
		if path := config.NewLoader(c.global.configPath).Path(); path != "" {
			r, watchErr := config.Watch(path, log, s.applyReload)
			if watchErr != nil {
				log.Warn("config reload disabled", "path", path, "error", watchErr)
			} else {
				defer func() { _ = r.Close() }()
			}
		}
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reason, err := s.loop(ctx, cfg.Read.Timeout)
	if err != nil {
		return err
	}
	log.Debug("watch loop ended", "reason", reason)

	if !c.noSummary {
		summary, fmtErr := newFormatter(cfg, c.color, cmd.ErrOrStderr())
		if fmtErr != nil {
			return fmtErr
		}
		return summary.FormatStats(cmd.ErrOrStderr(), s.agg.Stats())
	}

	return nil
}

// watchSession is the state of one watch loop.
type watchSession struct {
	cmd       *watchCommand
	watcher   *watcher.Watcher
	formatter display.Formatter
	agg       aggregator.Aggregator
	matcher   atomic.Pointer[filter.Matcher]
	journal   *journal.Journal
	runID     string
	roots     []string
	out       io.Writer
	log       logger.Logger

	delivered int
}

// loop reads events until ctx is done, the idle timeout passes or the event
// count is reached. It returns why it stopped.
func (s *watchSession) loop(ctx context.Context, idleTimeout time.Duration) (string, error) {
	lastEvent := time.Now()

	for {
		if ctx.Err() != nil {
			return "interrupted", nil
		}

		wait := signalPollInterval
		if idleTimeout > 0 {
			remaining := idleTimeout - time.Since(lastEvent)
			if remaining <= 0 {
				return "idle timeout", nil
			}
			if remaining < wait {
				wait = remaining
			}
		}

		events, err := s.watcher.ReadTimeout(wait)
		if err != nil {
			return "", fmt.Errorf("failed to read events: %w", err)
		}
		if len(events) == 0 {
			continue
		}
		lastEvent = time.Now()

		done, err := s.handle(events)
		if err != nil {
			return "", err
		}
		if done {
			return "count reached", nil
		}
	}
}

// handle filters, prints, aggregates and journals one batch. It reports
// whether the event count limit was reached.
func (s *watchSession) handle(events []watcher.Event) (bool, error) {
	matcher := s.matcher.Load()
	limit := s.cmd.count

	shown := make([]watcher.Event, 0, len(events))
	for _, ev := range events {
		if matcher.MatchAny(s.roots, ev.Path) {
			continue
		}
		shown = append(shown, ev)
		if limit > 0 && s.delivered+len(shown) >= limit {
			break
		}
	}

	for _, ev := range shown {
		if err := s.formatter.FormatEvent(s.out, ev); err != nil {
			return false, fmt.Errorf("failed to write event: %w", err)
		}
		s.agg.Add(ev)
	}
	s.delivered += len(shown)

	if s.journal != nil {
		if err := s.journal.Append(s.runID, shown); err != nil {
			s.log.Error("failed to journal events", "error", err, "count", len(shown))
		}
	}

	return limit > 0 && s.delivered >= limit, nil
}

// applyReload is called with each valid revision of the config file.
func (s *watchSession) applyReload(cfg *config.Config) {
	s.log.SetLevel(cfg.Logging.Level)

	if s.cmd.exclude == nil {
		m, err := filter.New(cfg.Exclude)
		if err != nil {
			s.log.Warn("ignoring reloaded exclude patterns", "error", err)
		} else {
			s.matcher.Store(m)
		}
	}

	s.log.Info("config change applied",
		"log_level", cfg.Logging.Level,
		"exclude", strings.Join(cfg.Exclude, ","))
}

// absRoots qualifies roots so that exclude patterns match watcher paths.
func absRoots(roots []string) ([]string, error) {
	abs := make([]string, 0, len(roots))
	for _, root := range roots {
		p, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
		}
		abs = append(abs, p)
	}
	return abs, nil
}
