package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"github.com/justyntemme/wsl-t/internal/config"
)

// ConfigInit writes the default configuration to --config or the default path
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := config.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config created", "path", path)
	return r.writePlain("✓ Configuration written to %s\n", path)
}

// ConfigShow prints the effective configuration with the token masked
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.Config(cmd)
	if err != nil {
		return err
	}

	shown := *cfg
	if shown.Auth.Token != "" {
		shown.Auth.Token = "********"
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(shown); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	r.writePlain("# %s\n", cfg.Path())
	return r.writePlain("%s", buf.String())
}

// ConfigSetToken stores the session token in the configuration file
func (r *Runner) ConfigSetToken(ctx context.Context, cmd *cli.Command) error {
	token := cmd.Args().First()
	if token == "" {
		return fmt.Errorf("%w: missing token", ErrUsage)
	}
	cfg, err := r.Config(cmd)
	if err != nil {
		return err
	}
	if err := cfg.SetToken(token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return r.writePlain("✓ Token saved to %s\n", cfg.Path())
}
