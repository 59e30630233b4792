package declaration

import "context"

// SourceReader yields type declarations read from live source.
type SourceReader interface {
	Read(ctx context.Context, root string) ([]*Type, error)
}

// MetadataReader yields type declarations recovered from type-checked packages.
// Fields it returns resolve FirstGenericArgument.
type MetadataReader interface {
	Read(ctx context.Context, root string) ([]*Type, error)
}
