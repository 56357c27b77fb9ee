//go:build linux

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/0xmhha/treewatch/pkg/config"
)

// configCommand handles configuration management subcommands.
type configCommand struct {
	global *globalFlags

	format string
	force  bool
	output string
}

func newConfigCommand(global *globalFlags) *cobra.Command {
	c := &configCommand{global: global}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runShow(cmd)
		},
	}
	show.Flags().StringVar(&c.format, "format", "yaml", "output format (yaml, json)")

	path := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file search paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runPath(cmd)
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runInit(cmd)
		},
	}
	initCmd.Flags().BoolVar(&c.force, "force", false, "overwrite an existing file")
	initCmd.Flags().StringVar(&c.output, "output", "", "output path (default: ~/.config/treewatch/config.yaml)")

	cmd.AddCommand(show, path, initCmd)
	return cmd
}

// runShow displays the current configuration.
func (c *configCommand) runShow(cmd *cobra.Command) error {
	cfg, err := loadConfig(c.global)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch c.format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintln(out, "# Source:", c.source())
		fmt.Fprint(out, string(data))
	default:
		return fmt.Errorf("invalid --format %q: must be yaml or json", c.format)
	}

	return nil
}

// runPath shows the configuration file search paths.
func (c *configCommand) runPath(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Configuration file search paths (in order of precedence):")
	for i, p := range []string{"./treewatch.yaml", config.DefaultConfigPath()} {
		state := "not found"
		if _, err := os.Stat(p); err == nil {
			state = "found"
		}
		fmt.Fprintf(out, "  %d. %s [%s]\n", i+1, p, state)
	}

	fmt.Fprintln(out, "Active configuration:", c.source())
	return nil
}

// runInit writes the default configuration.
func (c *configCommand) runInit(cmd *cobra.Command) error {
	path := c.output
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !c.force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	if err := config.Save(config.Default(), path); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Wrote default configuration to", path)
	return nil
}

// source returns the active configuration file or a note that none exists.
func (c *configCommand) source() string {
	if p := config.NewLoader(c.global.configPath).Path(); p != "" {
		return p
	}
	return "defaults (no config file found)"
}
