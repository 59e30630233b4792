// Package metadata recovers struct declarations from type-checked packages.
package metadata

import (
	"context"
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/tools/go/packages"

	"specgraph/internal/declaration"
	"specgraph/internal/logging"
	"specgraph/internal/typename"
)

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedTypes |
	packages.NeedSyntax | packages.NeedTypesInfo

// Loader loads packages with golang.org/x/tools/go/packages and converts their struct
// types into metadata declarations.
type Loader struct {
	markers  declaration.Markers
	tests    bool
	patterns []string
	logger   *log.Logger
}

// NewLoader creates a loader. Test packages are included when tests is set.
func NewLoader(markers declaration.Markers, tests bool, logger *log.Logger) *Loader {
	return &Loader{
		markers:  markers,
		tests:    tests,
		patterns: []string{"./..."},
		logger:   logging.OrDiscard(logger),
	}
}

// Read implements declaration.MetadataReader.
func (l *Loader) Read(ctx context.Context, root string) ([]*declaration.Type, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	cfg := &packages.Config{
		Mode:    loadMode,
		Context: ctx,
		Dir:     root,
		Tests:   l.tests,
	}
	pkgs, err := packages.Load(cfg, l.patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages in %s: %w", root, err)
	}

	// With tests, a package shows up plain and as its test variant. Keep the variant
	// with the most files for every import path.
	byPath := make(map[string]*packages.Package)
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			l.logger.Warn("package error", "pkg", pkg.ID, "err", e)
		}
		if pkg.Types == nil || strings.HasSuffix(pkg.PkgPath, ".test") {
			continue
		}
		if prev, ok := byPath[pkg.PkgPath]; !ok || len(pkg.GoFiles) > len(prev.GoFiles) {
			byPath[pkg.PkgPath] = pkg
		}
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	c := newConverter(l.markers, root)
	var out []*declaration.Type
	for _, p := range paths {
		pkg := byPath[p]
		out = append(out, c.FromPackage(pkg.Types, pkg.Fset)...)
	}
	return out, nil
}

// converter memoises conversions so that generic arguments resolve to the same
// declaration as the type itself.
type converter struct {
	markers declaration.Markers
	root    string
	seen    map[declaration.Handle]*declaration.Type
}

func newConverter(markers declaration.Markers, root string) *converter {
	return &converter{markers: markers, root: root, seen: make(map[declaration.Handle]*declaration.Type)}
}

// FromPackage converts every named type declared at the package scope, in scope order.
func (c *converter) FromPackage(pkg *types.Package, fset *token.FileSet) []*declaration.Type {
	var out []*declaration.Type
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		obj, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || obj.IsAlias() {
			continue
		}
		named, ok := obj.Type().(*types.Named)
		if !ok {
			continue
		}
		out = append(out, c.convert(named, fset))
	}
	return out
}

func (c *converter) convert(named *types.Named, fset *token.FileSet) *declaration.Type {
	obj := named.Obj()
	pkgPath := ""
	if obj.Pkg() != nil {
		pkgPath = obj.Pkg().Path()
	}
	handle := declaration.TypeHandle(declaration.Metadata, pkgPath, obj.Name())
	if t, ok := c.seen[handle]; ok {
		return t
	}

	t := &declaration.Type{
		Handle:  handle,
		Origin:  declaration.Metadata,
		Package: pkgPath,
		Name:    obj.Name(),
		Generic: named.TypeParams().Len() > 0,
	}
	c.seen[handle] = t
	c.locate(t, obj.Pos(), fset)

	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return t
	}
	t.IsStruct = true
	for i := 0; i < st.NumFields(); i++ {
		v := st.Field(i)
		if v.Embedded() {
			switch embeddedName(v.Type()) {
			case c.markers.IgnoreMarker:
				t.Ignored = true
			case c.markers.BehaviorsMarker:
				t.Behaviors = true
			}
			continue
		}

		tag := st.Tag(i)
		f := &declaration.Field{
			Name:    v.Name(),
			Type:    typename.FromTypes(v.Type()),
			Tag:     tag,
			Ignored: declaration.TagIgnored(tag, c.markers.TagKey),
		}
		if fset != nil && v.Pos().IsValid() {
			f.Line = fset.Position(v.Pos()).Line
		}
		t.AddField(f)

		if fieldType, ok := v.Type().(*types.Named); ok {
			if args := fieldType.TypeArgs(); args != nil && args.Len() > 0 {
				if arg, ok := args.At(0).(*types.Named); ok {
					f.SetFirstGenericArgument(c.convert(arg.Origin(), fset))
				}
			}
		}
	}
	return t
}

func (c *converter) locate(t *declaration.Type, pos token.Pos, fset *token.FileSet) {
	if fset == nil || !pos.IsValid() {
		return
	}
	position := fset.Position(pos)
	t.File = position.Filename
	if c.root != "" {
		if rel, err := filepath.Rel(c.root, position.Filename); err == nil && !strings.HasPrefix(rel, "..") {
			t.File = filepath.ToSlash(rel)
		}
	}
	t.StartLine = position.Line
	t.EndLine = position.Line
}

func embeddedName(t types.Type) string {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	switch t := t.(type) {
	case *types.Named:
		return t.Obj().Name()
	case *types.Alias:
		return t.Obj().Name()
	}
	return ""
}
