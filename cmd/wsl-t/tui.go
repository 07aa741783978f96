package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/justyntemme/wsl-t/internal/logging"
	"github.com/justyntemme/wsl-t/internal/query"
	"github.com/justyntemme/wsl-t/internal/ui"
	"github.com/justyntemme/wsl-t/internal/ui/styles"
	"github.com/justyntemme/wsl-t/pkg/models"
)

// TUI launches the interactive reader at --at
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Present() {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd.Args().First())
	}
	start, err := query.ParseLocation(cmd.String("at"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	cfg, err := r.Config(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath, err := cfg.LogFile()
	if err != nil {
		return fmt.Errorf("failed to resolve log file: %w", err)
	}
	fileLogger, closer, err := logging.NewFile(logPath, cfg.LogLevel())
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.closers = append(r.closers, closer)
	r.SetLogger(fileLogger)

	svc, err := r.Service(cmd)
	if err != nil {
		return err
	}

	styles.SetCurrentTheme(cfg.Reader.Theme)
	if cfg.Server.Lang == models.LangTC {
		start.LangTC = true
	}
	fileLogger.Info("starting", "location", start.String(), "server", cfg.Server.URL)

	app := ui.NewApp(svc, start,
		ui.WithLogger(fileLogger),
		ui.WithSessionRefresh(cfg.IsAuthenticated()),
	)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
