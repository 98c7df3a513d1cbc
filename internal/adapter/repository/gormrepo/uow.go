package gormrepo

import (
	"context"

	"doctrack/internal/domain/document"
	"doctrack/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := uow.Repos{
			Documents: &DocumentRepository{db: tx},
			Users:     &UserRepository{db: tx},
		}
		return fn(r)
	})
}

func (u *GormUoW) WithinDocumentTx(ctx context.Context, controlNumber string, fn func(r uow.Repos, d *document.Document) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		docs := &DocumentRepository{db: tx}
		r := uow.Repos{
			Documents: docs,
			Users:     &UserRepository{db: tx},
		}
		// lock the document row up-front to prevent races
		d, err := docs.GetByControlNumberForUpdate(ctx, controlNumber)
		if err != nil {
			return err
		}
		return fn(r, d)
	})
}
