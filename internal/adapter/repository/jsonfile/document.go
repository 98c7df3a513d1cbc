package jsonfile

import (
	"context"

	"doctrack/internal/domain/document"
)

type DocumentRepository struct {
	store *Store
	tx    *tx
}

func (r *DocumentRepository) List(ctx context.Context) ([]document.Document, error) {
	var out []document.Document
	r.store.view(r.tx, func(d *fileData) {
		out = make([]document.Document, len(d.Docs))
		copy(out, d.Docs)
	})
	return out, nil
}

func (r *DocumentRepository) ReplaceAll(ctx context.Context, docs []document.Document) error {
	next := make([]document.Document, len(docs))
	copy(next, docs)
	for i := range next {
		next[i].DeletedAt = 0
	}
	return r.store.mutate(r.tx, func(d *fileData) error {
		d.Docs = next
		return nil
	})
}

func (r *DocumentRepository) GetByControlNumber(ctx context.Context, controlNumber string) (*document.Document, error) {
	var out *document.Document
	r.store.view(r.tx, func(d *fileData) {
		for i := range d.Docs {
			if d.Docs[i].ControlNumber == controlNumber {
				cp := d.Docs[i]
				out = &cp
				return
			}
		}
	})
	if out == nil {
		return nil, document.ErrNotFound
	}
	return out, nil
}

// Save overwrites the record in place, or appends it when absent.
func (r *DocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	return r.store.mutate(r.tx, func(d *fileData) error {
		for i := range d.Docs {
			if d.Docs[i].ControlNumber == doc.ControlNumber {
				d.Docs[i] = *doc
				return nil
			}
		}
		d.Docs = append(d.Docs, *doc)
		return nil
	})
}
