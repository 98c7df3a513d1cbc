package gormrepo

import (
	"context"
	"errors"

	docDomain "doctrack/internal/domain/document"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentRepository struct{ db *gorm.DB }

func NewDocumentRepository(db *gorm.DB) *DocumentRepository { return &DocumentRepository{db: db} }

func (r *DocumentRepository) List(ctx context.Context) ([]docDomain.Document, error) {
	var out []docDomain.Document
	res := r.db.WithContext(ctx).Order("position ASC").Find(&out)
	return out, res.Error
}

// ReplaceAll deletes every row and inserts docs in order. Duplicate control
// numbers in the payload collapse to the last one, like the file store.
func (r *DocumentRepository) ReplaceAll(ctx context.Context, docs []docDomain.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&docDomain.Document{}).Error; err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		rows := make([]docDomain.Document, len(docs))
		for i, d := range docs {
			d.Position = i
			d.DeletedAt = 0
			rows[i] = d
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(rows, 200).Error
	})
}

func (r *DocumentRepository) GetByControlNumber(ctx context.Context, controlNumber string) (*docDomain.Document, error) {
	var out docDomain.Document
	res := r.db.WithContext(ctx).Where("control_number = ?", controlNumber).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, docDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *DocumentRepository) GetByControlNumberForUpdate(ctx context.Context, controlNumber string) (*docDomain.Document, error) {
	var out docDomain.Document
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("control_number = ?", controlNumber).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, docDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *DocumentRepository) Save(ctx context.Context, d *docDomain.Document) error {
	return r.db.WithContext(ctx).Save(d).Error
}
