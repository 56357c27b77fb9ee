//go:build linux

// Package main provides the treewatch CLI application.
//
// Treewatch watches whole directory trees through a single inotify instance,
// prints every event with its full path, and can journal events to a local
// database for later inspection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set during build time.
var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree.
func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "treewatch",
		Short: "Watch directory trees for filesystem events",
		Long: `Treewatch reports filesystem events for whole directory trees.

Every directory under each root is watched through one inotify instance.
Directories created inside the tree are watched as they appear and deleted
ones are dropped, so event paths are always fully qualified.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newWatchCommand(flags),
		newMonitorCommand(flags),
		newJournalCommand(flags),
		newConfigCommand(flags),
		newVersionCommand(),
	)

	return root
}
