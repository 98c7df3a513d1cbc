package document

import "context"

type Repository interface {
	// List returns the active collection in stored order.
	List(ctx context.Context) ([]Document, error)
	// ReplaceAll swaps the whole collection; there is no merge.
	ReplaceAll(ctx context.Context, docs []Document) error
	GetByControlNumber(ctx context.Context, controlNumber string) (*Document, error)
	Save(ctx context.Context, d *Document) error
}
