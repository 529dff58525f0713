package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/term"

	"github.com/tranvictor/medchain/config"
)

// setupLogging sends diagnostics to stderr, user facing output goes
// through appUI.
func setupLogging(level string) error {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	useColor := !config.NoColor && term.IsTerminal(int(os.Stderr.Fd()))
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)))
	return nil
}
