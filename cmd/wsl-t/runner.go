package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justyntemme/wsl-t/internal/api"
	"github.com/justyntemme/wsl-t/internal/books"
	"github.com/justyntemme/wsl-t/internal/config"
	"github.com/justyntemme/wsl-t/internal/logging"
	"github.com/justyntemme/wsl-t/internal/progress"
	"github.com/justyntemme/wsl-t/internal/storage"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The configuration and the book service are built on first use so that
// the global flags of whichever command runs are honoured.
type Runner struct {
	config  *config.Config
	service *books.Service
	logger  *log.Logger
	output  io.Writer
	closers []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
// Config and Service, when set, are used as is.
type RunnerOpts struct {
	Config  *config.Config
	Service *books.Service
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = logging.New(nil, log.InfoLevel)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		service: opts.Service,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

// Command returns the root command. Without a subcommand it starts the
// terminal UI.
func (r *Runner) Command() *cli.Command {
	return &cli.Command{
		Name:    "wsl-t",
		Usage:   "Terminal reader for the book API",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"s"},
				Usage:   "Server URL (saved to config)",
			},
			&cli.StringFlag{
				Name:  "lang",
				Usage: `Text variant: "" for the original, "zh-Hant" for traditional script`,
			},
			&cli.StringFlag{
				Name:  "at",
				Usage: "Location to open the terminal UI at, e.g. /book/12/chapter/3",
				Value: "/",
			},
		},
		Commands: r.register(),
		Action:   r.TUI,
		After:    r.close,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		booksCommand, chapterCommand, recentCommand, adminCommand, meCommand, pingCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger. Must be called before the service is built
// for the service to pick it up.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Config loads the configuration named by --config once and applies the
// --url and --lang overrides.
func (r *Runner) Config(cmd *cli.Command) (*config.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if u := cmd.String("url"); u != "" {
		cfg.Server.URL = u
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if err := cfg.Save(); err != nil {
			r.logger.Warn("could not save server url to config", "err", err)
		}
	}
	if cmd.IsSet("lang") {
		cfg.Server.Lang = cmd.String("lang")
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	r.logger.SetLevel(cfg.LogLevel())
	r.config = cfg
	return cfg, nil
}

// Service builds the book service from the configuration once
func (r *Runner) Service(cmd *cli.Command) (*books.Service, error) {
	if r.service != nil {
		return r.service, nil
	}
	cfg, err := r.Config(cmd)
	if err != nil {
		return nil, err
	}

	svc, kv, err := newService(cfg, r.logger)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, kv)
	r.service = svc
	return svc, nil
}

// newService wires the API client, the progress store and the chapter cache
// as configured.
func newService(cfg *config.Config, logger *log.Logger) (*books.Service, storage.KV, error) {
	opts, err := cfg.StorageOptions()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving storage: %w", err)
	}
	kv, err := storage.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s storage: %w", opts.Backend, err)
	}

	client := api.NewClient(cfg.Server.URL, cfg.Auth.Token,
		api.WithLang(cfg.Server.Lang),
		api.WithTimeout(cfg.Timeout()),
		api.WithRateLimit(cfg.Server.RateLimit),
		api.WithLogger(logger),
	)
	store := progress.New(kv, progress.WithKey(cfg.Storage.ProgressKey))
	svc := books.New(client, store,
		books.WithLogger(logger),
		books.WithBookPageSize(cfg.Reader.BookPageSize),
		books.WithChapterListPageSize(cfg.Reader.ChapterListPageSize),
		books.WithChapterPageSize(cfg.Reader.ChapterPageSize),
	)
	return svc, kv, nil
}

func (r *Runner) close(_ context.Context, _ *cli.Command) error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
