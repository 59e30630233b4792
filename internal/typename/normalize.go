// Package typename turns type references from either reader into one canonical string.
//
// The source adapter (FromSitter) and the metadata adapter (FromTypes) both produce a
// declaration.TypeRef; Normalize is the only place a TypeRef becomes a string, so the two
// discovery paths cannot disagree on formatting.
package typename

import (
	"regexp"
	"strings"

	"specgraph/internal/declaration"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize returns the canonical name of ref, or "" when ref resolved to nothing.
func Normalize(ref declaration.TypeRef) string {
	var sb strings.Builder
	if !write(&sb, ref) {
		return ""
	}
	return sb.String()
}

// Qualified returns the canonical name of the type name declared in package pkg.
func Qualified(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func write(sb *strings.Builder, ref declaration.TypeRef) bool {
	switch ref.Kind {
	case declaration.Named:
		if ref.Name == "" {
			return false
		}
		sb.WriteString(Qualified(ref.Package, ref.Name))
		if len(ref.Args) == 0 {
			return true
		}
		sb.WriteByte('[')
		for i, arg := range ref.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			if !write(sb, arg) {
				return false
			}
		}
		sb.WriteByte(']')
		return true
	case declaration.Pointer:
		sb.WriteByte('*')
		return writeElem(sb, ref)
	case declaration.Slice:
		sb.WriteString("[]")
		return writeElem(sb, ref)
	case declaration.Array:
		sb.WriteByte('[')
		sb.WriteString(canonicalize(ref.Name))
		sb.WriteByte(']')
		return writeElem(sb, ref)
	case declaration.Map:
		if len(ref.Args) != 2 {
			return false
		}
		sb.WriteString("map[")
		if !write(sb, ref.Args[0]) {
			return false
		}
		sb.WriteByte(']')
		return write(sb, ref.Args[1])
	case declaration.Opaque:
		text := canonicalize(ref.Name)
		if text == "" {
			return false
		}
		sb.WriteString(text)
		return true
	}
	return false
}

func writeElem(sb *strings.Builder, ref declaration.TypeRef) bool {
	if len(ref.Args) != 1 {
		return false
	}
	return write(sb, ref.Args[0])
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}

// predeclared lists the universe-scope type names, which carry no package.
var predeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
}

// IsPredeclared reports whether name is a universe-scope type.
func IsPredeclared(name string) bool {
	return predeclared[name]
}
