package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/justyntemme/wsl-t/internal/logging"
)

func main() {
	logger := logging.New(os.Stderr, log.InfoLevel)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.Command().Run(context.Background(), os.Args); err != nil {
		logger.Fatal("application error", "err", err)
	}
}
