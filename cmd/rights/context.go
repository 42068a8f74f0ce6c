package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/xraph/rights"
	"github.com/xraph/rights/store/sqlite"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *cliConfig
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{configFlag: configFlag, verbose: verbose}
}

func (c *commandContext) ensureConfig() (*cliConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = loadConfig(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose != nil && *c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// withStore opens the configured SQLite database for the duration of fn.
func (c *commandContext) withStore(ctx context.Context, fn func(*sqlite.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	s, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.Database, err)
	}
	defer s.Close()
	return fn(s)
}

// withEngine starts an engine hydrated from the configured database.
func (c *commandContext) withEngine(cmd *cobra.Command, fn func(*rights.Engine) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	opts, err := engineOptionsFor(cfg)
	if err != nil {
		return err
	}
	opts = append(opts, rights.WithLogger(c.logger(cmd.ErrOrStderr())))

	ctx := cmd.Context()
	s, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.Database, err)
	}

	engine := rights.New(s, opts...)
	if err := engine.Start(ctx); err != nil {
		_ = s.Close()
		return err
	}
	defer engine.Stop()
	return fn(engine)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
