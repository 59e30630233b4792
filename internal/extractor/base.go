package extractor

import (
	sitter "github.com/smacker/go-tree-sitter"

	"specgraph/internal/declaration"
	"specgraph/internal/typename"
)

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	GetQuery() string
	ExtractType(node *sitter.Node, sourceCode []byte, filepath string, scope typename.Scope, markers declaration.Markers) *declaration.Type
}
