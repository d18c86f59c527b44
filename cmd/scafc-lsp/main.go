// Command scafc-lsp serves scaf completions over the Language Server Protocol.
package main

import (
	"context"
	"errors"
	"io"
	"os"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/complete"
	"github.com/rlch/complete/lsp"
)

func main() {
	var opts []lsp.Option

	level := zapcore.InfoLevel

	// A config in the working directory pins the settings; otherwise the
	// server looks one up from the workspace root on initialize.
	cfg, cfgErr := loadConfig()
	if cfg != nil {
		opts = append(opts, lsp.WithConfig(cfg))

		if cfg.Debug {
			level = zapcore.DebugLevel
		}
	}

	// Set up logging to stderr (stdout is for LSP communication)
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	defer func() {
		_ = logger.Sync()
	}()

	if cfgErr != nil {
		logger.Warn("Ignoring config", zap.Error(cfgErr))
	}

	logger.Info("Starting scafc-lsp server")

	err = run(context.Background(), logger, os.Stdin, os.Stdout, opts...)
	if err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func loadConfig() (*complete.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := complete.LoadConfig(cwd)
	if errors.Is(err, complete.ErrConfigNotFound) {
		return nil, nil //nolint:nilnil // no config is not an error
	}

	return cfg, err
}

func run(ctx context.Context, logger *zap.Logger, in io.Reader, out io.Writer, opts ...lsp.Option) error {
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)

	client := protocol.ClientDispatcher(conn, logger)
	server := lsp.NewServer(client, logger, opts...)

	conn.Go(ctx, protocol.ServerHandler(server, nil))

	<-conn.Done()

	return conn.Err()
}

// readWriteCloser joins stdin and stdout into one stream.
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	if c, ok := rwc.Writer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
