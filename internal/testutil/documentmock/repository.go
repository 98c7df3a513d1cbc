package documentmock

import (
	"context"

	domain "doctrack/internal/domain/document"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset read methods return context.Canceled; unset writes succeed.
type Repo struct {
	ListFn               func(ctx context.Context) ([]domain.Document, error)
	ReplaceAllFn         func(ctx context.Context, docs []domain.Document) error
	GetByControlNumberFn func(ctx context.Context, controlNumber string) (*domain.Document, error)
	SaveFn               func(ctx context.Context, d *domain.Document) error
}

func (m *Repo) List(ctx context.Context) ([]domain.Document, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) ReplaceAll(ctx context.Context, docs []domain.Document) error {
	if m.ReplaceAllFn != nil {
		return m.ReplaceAllFn(ctx, docs)
	}
	return nil
}

func (m *Repo) GetByControlNumber(ctx context.Context, controlNumber string) (*domain.Document, error) {
	if m.GetByControlNumberFn != nil {
		return m.GetByControlNumberFn(ctx, controlNumber)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, d *domain.Document) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, d)
	}
	return nil
}
