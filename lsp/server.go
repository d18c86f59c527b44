// Package lsp implements a Language Server Protocol server that serves scaf
// completions from the completion engine.
package lsp

import (
	"context"
	"errors"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/complete"
	"github.com/rlch/complete/dsl"
)

// Server implements the LSP Server interface for scaf completion.
type Server struct {
	client protocol.Client
	logger *zap.Logger
	loader *dsl.FileLoader

	// configured is set when the config came from an option; otherwise it
	// is loaded from the workspace root on initialize.
	configured bool

	mu        sync.RWMutex
	config    *complete.Config
	engine    *complete.Engine
	documents map[protocol.DocumentURI]*Document

	// Server state
	shutdown      bool
	workspaceRoot string
}

var _ protocol.Server = (*Server)(nil)

// Document is an open document. Snapshot is replaced, never mutated, on
// every change, so a request keeps working on the snapshot it started with.
type Document struct {
	URI      protocol.DocumentURI
	Version  int32
	Snapshot *dsl.Document
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the completion configuration. Defaults to complete.DefaultConfig.
func WithConfig(cfg *complete.Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.config = cfg
			s.configured = true
		}
	}
}

// WithLoader sets the loader used for imported modules.
func WithLoader(loader *dsl.FileLoader) Option {
	return func(s *Server) {
		if loader != nil {
			s.loader = loader
		}
	}
}

// NewServer creates a new LSP server.
func NewServer(client protocol.Client, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		client:    client,
		logger:    logger,
		config:    complete.DefaultConfig(),
		loader:    dsl.NewFileLoader(),
		documents: make(map[protocol.DocumentURI]*Document),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.engine = s.newEngine(s.config)

	return s
}

func (s *Server) newEngine(cfg *complete.Config) *complete.Engine {
	return complete.NewEngine(
		dsl.NewRegistry(cfg, s.logger),
		complete.WithLogger(s.logger),
		complete.WithConfig(cfg),
	)
}

// Initialize handles the initialize request.
func (s *Server) Initialize(_ context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s.logger.Info("Initialize", zap.String("rootURI", string(params.RootURI)))

	root := params.RootPath
	if params.RootURI != "" {
		root = URIToPath(params.RootURI)
	}

	s.mu.Lock()
	s.workspaceRoot = root
	s.mu.Unlock()

	if root != "" && !s.configured {
		s.loadWorkspaceConfig(root)
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			// Full document sync - client sends entire content on change
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{},
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"$", "."},
				ResolveProvider:   false,
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "scafc-lsp",
			Version: "0.1.0",
		},
	}, nil
}

// Initialized handles the initialized notification.
func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	s.logger.Info("Initialized")

	return nil
}

// Shutdown handles the shutdown request.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("Shutdown")

	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	return nil
}

// Exit handles the exit notification.
func (s *Server) Exit(_ context.Context) error {
	s.logger.Info("Exit")
	// The main loop should handle exiting after this
	return nil
}

// DidOpen handles textDocument/didOpen notifications.
func (s *Server) DidOpen(_ context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.logger.Info("DidOpen", zap.String("uri", string(params.TextDocument.URI)))

	s.setDocument(params.TextDocument.URI, params.TextDocument.Version, params.TextDocument.Text)

	return nil
}

// DidChange handles textDocument/didChange notifications. With full sync the
// last change carries the whole text.
func (s *Server) DidChange(_ context.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.logger.Debug("DidChange",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int32("version", params.TextDocument.Version))

	if len(params.ContentChanges) == 0 {
		return nil
	}

	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	s.setDocument(params.TextDocument.URI, params.TextDocument.Version, text)

	return nil
}

// DidSave handles textDocument/didSave notifications. The saved file may be
// imported by other documents, so its cached module is dropped.
func (s *Server) DidSave(_ context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.logger.Debug("DidSave", zap.String("uri", string(params.TextDocument.URI)))

	s.loader.Invalidate(URIToPath(params.TextDocument.URI))

	return nil
}

// DidClose handles textDocument/didClose notifications.
func (s *Server) DidClose(_ context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.logger.Info("DidClose", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	delete(s.documents, params.TextDocument.URI)
	s.mu.Unlock()

	return nil
}

// DidChangeWatchedFiles handles workspace/didChangeWatchedFiles by dropping
// cached modules of changed files.
func (s *Server) DidChangeWatchedFiles(_ context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	for _, change := range params.Changes {
		s.logger.Debug("Watched file changed", zap.String("uri", string(change.URI)))
		s.loader.Invalidate(URIToPath(change.URI))
	}

	return nil
}

// DidRenameFiles handles workspace/didRenameFiles.
func (s *Server) DidRenameFiles(_ context.Context, params *protocol.RenameFilesParams) error {
	for _, f := range params.Files {
		s.loader.Invalidate(URIToPath(protocol.DocumentURI(f.OldURI)))
	}

	return nil
}

// DidDeleteFiles handles workspace/didDeleteFiles.
func (s *Server) DidDeleteFiles(_ context.Context, params *protocol.DeleteFilesParams) error {
	for _, f := range params.Files {
		s.loader.Invalidate(URIToPath(protocol.DocumentURI(f.URI)))
	}

	return nil
}

// loadWorkspaceConfig switches to the nearest .scafc.yaml above root.
func (s *Server) loadWorkspaceConfig(root string) {
	cfg, err := complete.LoadConfig(root)
	if err != nil {
		if !errors.Is(err, complete.ErrConfigNotFound) {
			s.logger.Warn("Failed to load config", zap.String("root", root), zap.Error(err))
		}

		return
	}

	s.logger.Info("Loaded config",
		zap.String("root", root),
		zap.Bool("caseSensitive", cfg.CaseSensitive),
		zap.Strings("disabled", cfg.Disabled))

	engine := s.newEngine(cfg)

	s.mu.Lock()
	s.config = cfg
	s.engine = engine
	s.mu.Unlock()
}

func (s *Server) setDocument(uri protocol.DocumentURI, version int32, text string) {
	snapshot := dsl.NewDocument(URIToPath(uri), text, s.loader)
	if err := snapshot.ParseError(); err != nil {
		s.logger.Debug("Document does not parse", zap.String("uri", string(uri)), zap.Error(err))
	}

	s.mu.Lock()
	s.documents[uri] = &Document{URI: uri, Version: version, Snapshot: snapshot}
	s.mu.Unlock()
}

// WorkspaceRoot returns the root directory sent with initialize.
func (s *Server) WorkspaceRoot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.workspaceRoot
}

// getDocument retrieves a document by URI.
func (s *Server) getDocument(uri protocol.DocumentURI) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[uri]

	return doc, ok
}

// state returns the engine and shutdown flag under one lock.
func (s *Server) state() (*complete.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.engine, s.shutdown
}
