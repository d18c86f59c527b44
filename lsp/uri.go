package lsp

import (
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// URIToPath converts a document URI to a file system path. Non-file URIs
// (e.g. untitled buffers) are returned as they are.
func URIToPath(u protocol.DocumentURI) string {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return string(u)
	}

	parsed, err := uri.Parse(string(u))
	if err != nil {
		return strings.TrimPrefix(string(u), uri.FileScheme+"://")
	}

	return parsed.Filename()
}

// PathToURI converts a file system path to a document URI.
func PathToURI(path string) protocol.DocumentURI {
	return uri.File(path)
}
