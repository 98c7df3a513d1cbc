package uow

import (
	"context"

	"doctrack/internal/domain/document"
	"doctrack/internal/domain/user"
)

// domain/uow/uow.go
type Repos struct {
	Documents document.Repository
	Users     user.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: load the document first, then pass it in
	WithinDocumentTx(ctx context.Context, controlNumber string, fn func(r Repos, d *document.Document) error) error
}
