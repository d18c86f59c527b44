package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

func TestRun(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverSide, clientSide := net.Pipe()

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = run(ctx, zap.NewNop(), serverSide, serverSide)
	}()

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide))
	conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)

	var init protocol.InitializeResult

	_, err := conn.Call(ctx, protocol.MethodInitialize, &protocol.InitializeParams{}, &init)
	require.NoError(t, err)
	require.NotNil(t, init.ServerInfo)
	assert.Equal(t, "scafc-lsp", init.ServerInfo.Name)

	uri := protocol.DocumentURI("file:///suite.scaf")

	err = conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: "qu"},
	})
	require.NoError(t, err)

	var list protocol.CompletionList

	_, err = conn.Call(ctx, protocol.MethodTextDocumentCompletion, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Character: 2},
		},
	}, &list)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "query", list.Items[0].Label)

	require.NoError(t, conn.Close())

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("server did not stop after the connection closed")
	}
}
