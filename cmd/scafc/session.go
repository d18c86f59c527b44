package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/complete"
	"github.com/rlch/complete/dsl"
)

// session completes snapshots of one file. Imports are resolved relative to
// the file and cached for the life of the session.
type session struct {
	path   string
	engine *complete.Engine
	loader *dsl.FileLoader
	logger *zap.Logger
}

type sessionOptions struct {
	caseSensitive bool
	debug         bool
	quiet         bool
}

func newSession(path string, opts sessionOptions) (*session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", path, err)
	}

	cfg, err := complete.LoadConfig(filepath.Dir(abs))

	switch {
	case errors.Is(err, complete.ErrConfigNotFound):
		cfg = complete.DefaultConfig()
	case err != nil:
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Flags override the config file.
	if opts.caseSensitive {
		cfg.CaseSensitive = true
	}

	if opts.debug {
		cfg.Debug = true
	}

	logger, err := newLogger(cfg.Debug && !opts.quiet)
	if err != nil {
		return nil, err
	}

	return &session{
		path: abs,
		engine: complete.NewEngine(
			dsl.NewRegistry(cfg, logger),
			complete.WithLogger(logger),
			complete.WithConfig(cfg),
		),
		loader: dsl.NewFileLoader(),
		logger: logger,
	}, nil
}

// newLogger returns a development logger on stderr when debug is set and a
// no-op logger otherwise.
func newLogger(debug bool) (*zap.Logger, error) {
	if !debug {
		return zap.NewNop(), nil
	}

	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	return logger, nil
}

func (s *session) read() (string, error) {
	data, err := os.ReadFile(s.path) //nolint:gosec // G304: file path from user input is expected
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (s *session) complete(ctx context.Context, content string, offset int) ([]complete.Candidate, error) {
	doc := dsl.NewDocument(s.path, content, s.loader)

	return s.engine.Complete(ctx, doc, offset)
}

func (s *session) close() {
	_ = s.logger.Sync()
}
