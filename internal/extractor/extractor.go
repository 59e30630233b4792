// Package extractor reads struct type declarations out of Go source files with tree-sitter.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"specgraph/internal/declaration"
	"specgraph/internal/typename"
)

// ErrUnsupportedLanguage is returned by NewExtractor for languages without an extractor.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Extractor orchestrates the extraction process using language-specific extractors.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
	markers       declaration.Markers
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string, markers declaration.Markers) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "go":
		langExt = &GoExtractor{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang, markers: markers}, nil
}

// ExtractFromSource parses one source file and extracts its type declarations. pkgPath is
// the import path of the directory holding the file.
// Files of an external test package ("foo_test") get the "_test" suffix on pkgPath.
func (e *Extractor) ExtractFromSource(filepath, pkgPath string, sourceCode []byte) ([]*declaration.Type, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.langExtractor.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filepath, err)
	}
	defer tree.Close()
	root := tree.RootNode()

	// Step 1: Resolve the package path and import table
	packageName := e.detectPackageName(root, sourceCode)
	if strings.HasSuffix(packageName, "_test") && !strings.HasSuffix(pkgPath, "_test") {
		pkgPath += "_test"
	}
	scope := typename.Scope{Package: pkgPath}
	if err := e.collectImports(root, sourceCode, &scope); err != nil {
		return nil, err
	}

	// Step 2: Run language-specific query
	query, err := sitter.NewQuery([]byte(e.langExtractor.GetQuery()), e.langExtractor.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	defer query.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)

	var types []*declaration.Type
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			if !isTopLevel(c.Node) {
				continue
			}
			if t := e.langExtractor.ExtractType(c.Node, sourceCode, filepath, scope, e.markers); t != nil {
				types = append(types, t)
			}
		}
	}

	return types, nil
}

func (e *Extractor) detectPackageName(root *sitter.Node, sourceCode []byte) string {
	if e.langName != "go" {
		return ""
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "package_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			if id := child.NamedChild(j); id.Type() == "package_identifier" {
				return id.Content(sourceCode)
			}
		}
	}
	return ""
}

func (e *Extractor) collectImports(root *sitter.Node, sourceCode []byte, scope *typename.Scope) error {
	query, err := sitter.NewQuery([]byte(`(import_spec) @import`), e.langExtractor.GetLanguage())
	if err != nil {
		return fmt.Errorf("failed to create import query: %w", err)
	}
	defer query.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			pathNode := c.Node.ChildByFieldName("path")
			if pathNode == nil {
				continue
			}
			importPath, err := strconv.Unquote(pathNode.Content(sourceCode))
			if err != nil {
				continue
			}
			alias := ""
			if nameNode := c.Node.ChildByFieldName("name"); nameNode != nil {
				alias = nameNode.Content(sourceCode)
			}
			scope.AddImport(alias, importPath)
		}
	}
	return nil
}

// isTopLevel reports whether a type_spec is declared at package level rather than in a
// function body.
func isTopLevel(node *sitter.Node) bool {
	decl := node.Parent()
	return decl != nil && decl.Type() == "type_declaration" &&
		decl.Parent() != nil && decl.Parent().Type() == "source_file"
}
