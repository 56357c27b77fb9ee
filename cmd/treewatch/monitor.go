//go:build linux

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0xmhha/treewatch/pkg/inotify"
)

// monitorCommand watches a single directory with the raw monitor. Events
// are printed exactly as the kernel reports them.
type monitorCommand struct {
	global *globalFlags

	events []string
	count  int
	format string
	color  string
}

func newMonitorCommand(global *globalFlags) *cobra.Command {
	c := &monitorCommand{global: global}

	cmd := &cobra.Command{
		Use:   "monitor DIR",
		Short: "Print raw inotify events for one directory",
		Long: `Watch a single directory without recursion and print raw events with
their watch descriptor, mask, cookie and entry name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Execute(cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&c.events, "events", []string{"all"}, "event kinds to request")
	f.IntVar(&c.count, "count", 0, "exit after this many events (0 is unlimited)")
	f.StringVar(&c.format, "format", "", "output format (text, json)")
	f.StringVar(&c.color, "color", "auto", "color output (auto, always, never)")

	return cmd
}

// Execute runs the monitor command.
func (c *monitorCommand) Execute(cmd *cobra.Command, dir string) error {
	cfg, err := loadConfig(c.global)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = c.format
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	formatter, err := newFormatter(cfg, c.color, out)
	if err != nil {
		return err
	}

	mask, err := inotify.ParseMask(c.events)
	if err != nil {
		return err
	}

	log := newLogger(cfg)

	mon, err := inotify.New()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := mon.Close(); closeErr != nil {
			log.Error("failed to close monitor", "error", closeErr)
		}
	}()

	id, err := mon.Add(dir, mask)
	if err != nil {
		return err
	}
	log.Info("monitoring directory", "path", dir, "wd", id, "mask", mask.String())

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	seen := 0
	for ctx.Err() == nil {
		events, err := mon.ReadTimeout(signalPollInterval)
		if err != nil {
			return fmt.Errorf("failed to read events: %w", err)
		}

		for _, ev := range events {
			if err := formatter.FormatRawEvent(out, ev); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
			seen++
			if c.count > 0 && seen >= c.count {
				return nil
			}
		}
	}

	return nil
}
