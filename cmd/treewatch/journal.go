//go:build linux

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xmhha/treewatch/pkg/display"
	"github.com/0xmhha/treewatch/pkg/journal"
)

// journalCommand inspects and prunes journaled runs.
type journalCommand struct {
	global *globalFlags

	dbPath string
	format string
}

func newJournalCommand(global *globalFlags) *cobra.Command {
	c := &journalCommand{global: global}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect journaled watch runs",
	}
	cmd.PersistentFlags().StringVar(&c.dbPath, "db", "", "journal database path")
	cmd.PersistentFlags().StringVar(&c.format, "format", "", "output format (text, json)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List journaled runs, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.runList(cmd)
			},
		},
		&cobra.Command{
			Use:   "show RUN",
			Short: "Show the events of a run (RUN may be an ID prefix)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.runShow(cmd, args[0])
			},
		},
		&cobra.Command{
			Use:   "delete RUN",
			Short: "Delete a run and its events",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.runDelete(cmd, args[0])
			},
		},
	)

	return cmd
}

// open loads configuration and opens the journal and formatter.
func (c *journalCommand) open(cmd *cobra.Command) (*journal.Journal, display.Formatter, error) {
	cfg, err := loadConfig(c.global)
	if err != nil {
		return nil, nil, err
	}
	if c.dbPath != "" {
		cfg.Journal.DBPath = c.dbPath
	}
	if c.format != "" {
		cfg.Output.Format = c.format
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	formatter, err := newFormatter(cfg, "auto", cmd.OutOrStdout())
	if err != nil {
		return nil, nil, err
	}

	j, err := journal.Open(journal.Config{DBPath: cfg.Journal.DBPath}, newLogger(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return j, formatter, nil
}

func (c *journalCommand) runList(cmd *cobra.Command) error {
	j, formatter, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.Runs()
	if err != nil {
		return err
	}

	return formatter.FormatRuns(cmd.OutOrStdout(), runs)
}

func (c *journalCommand) runShow(cmd *cobra.Command, id string) error {
	j, formatter, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.Find(id)
	if err != nil {
		return err
	}

	records, err := j.Events(run.ID)
	if err != nil {
		return err
	}

	return formatter.FormatRecords(cmd.OutOrStdout(), *run, records)
}

func (c *journalCommand) runDelete(cmd *cobra.Command, id string) error {
	j, _, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.Find(id)
	if err != nil {
		return err
	}

	if err := j.Delete(run.ID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s (%d events)\n", run.ID, run.EventCount)
	return nil
}
