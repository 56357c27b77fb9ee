//go:build linux

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/0xmhha/treewatch/pkg/config"
	"github.com/0xmhha/treewatch/pkg/display"
	"github.com/0xmhha/treewatch/pkg/logger"
)

// loadConfig loads configuration and applies the global flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.NewLoader(flags.configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(flags.logLevel)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Output: cfg.Logging.Output,
		Format: cfg.Logging.Format,
	})
}

// useColor resolves a --color mode against the configuration and the
// output stream.
func useColor(mode string, cfg *config.Config, out io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		return cfg.Output.Color && isTerminal(out), nil
	default:
		return false, fmt.Errorf("invalid --color value %q: must be auto, always, or never", mode)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// newFormatter builds the formatter for out from the output settings.
func newFormatter(cfg *config.Config, colorMode string, out io.Writer) (display.Formatter, error) {
	color, err := useColor(colorMode, cfg, out)
	if err != nil {
		return nil, err
	}

	return display.New(display.Config{
		Format: display.Format(cfg.Output.Format),
		Color:  color,
	}), nil
}
