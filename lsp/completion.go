package lsp

import (
	"context"
	"errors"
	"fmt"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/complete"
)

// Completion handles textDocument/completion requests.
func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	s.logger.Debug("Completion",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	engine, shutdown := s.state()
	if shutdown {
		return nil, fmt.Errorf("%w: server is shut down", jsonrpc2.ErrInvalidRequest)
	}

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	snapshot := doc.Snapshot
	content := snapshot.Content()
	offset := OffsetAt(content, params.Position)

	candidates, err := engine.Complete(ctx, snapshot, offset)
	if err != nil {
		s.logger.Debug("Completion failed", zap.Int("offset", offset), zap.Error(err))

		return nil, completionError(err)
	}

	items := make([]protocol.CompletionItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, completionItem(content, c))
	}

	s.logger.Debug("Completion result", zap.Int("offset", offset), zap.Int("items", len(items)))

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

// completionError maps engine errors to JSON-RPC errors, keeping the cause
// in the chain.
func completionError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", protocol.ErrRequestCancelled, err)
	case errors.Is(err, complete.ErrInvalidOffset):
		return fmt.Errorf("%w: %w", jsonrpc2.ErrInvalidParams, err)
	default:
		return err
	}
}

func completionItem(content string, c complete.Candidate) protocol.CompletionItem {
	item := protocol.CompletionItem{
		Label:  c.Label,
		Detail: c.Detail,
		Kind:   itemKind(c.Kind),
	}

	if c.Insert != "" {
		item.InsertText = c.Insert
	}

	if c.Replace != nil {
		item.TextEdit = &protocol.TextEdit{
			Range:   rangeOf(content, *c.Replace),
			NewText: c.InsertText(),
		}
	}

	return item
}

func itemKind(k complete.CandidateKind) protocol.CompletionItemKind {
	switch k {
	case complete.KindKeyword:
		return protocol.CompletionItemKindKeyword
	case complete.KindQuery:
		return protocol.CompletionItemKindFunction
	case complete.KindModule:
		return protocol.CompletionItemKindModule
	case complete.KindParameter:
		return protocol.CompletionItemKindVariable
	case complete.KindField:
		return protocol.CompletionItemKindField
	case complete.KindValue:
		return protocol.CompletionItemKindValue
	default:
		return protocol.CompletionItemKindText
	}
}
