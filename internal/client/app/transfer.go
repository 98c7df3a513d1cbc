package app

import (
	"context"
	"fmt"
	"io"

	"doctrack/internal/client/csvio"
	"doctrack/internal/client/store"
	"doctrack/internal/domain/document"
)

type ImportResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	// Rejected maps a control number to why its row was not imported.
	Rejected map[string]error `json:"-"`
}

// Import merges a CSV into the collection. Existing control numbers are
// overwritten when overwrite is set and skipped otherwise. Rows without a
// usable key or with invalid fields are skipped.
func (a *App) Import(ctx context.Context, r io.Reader, overwrite bool) (ImportResult, error) {
	if _, err := a.authorize(ctx, document.ActionImport, nil); err != nil {
		return ImportResult{}, err
	}
	parsed, err := csvio.Read(r, a.loc)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Rejected: map[string]error{}}
	for _, cn := range parsed.Invalid {
		res.Skipped++
		res.Rejected[cn] = document.ErrInvalidControlNumber
	}
	for _, doc := range parsed.Docs {
		existing, exists := a.store.Get(doc.ControlNumber)
		if exists && !overwrite {
			res.Skipped++
			continue
		}
		opts := store.UpsertOptions{KeepUpdatedAt: true}
		if exists {
			opts.OverrideCreatedAt = doc.CreatedAt != 0
			if doc.CreatedAt == 0 {
				doc.CreatedAt = existing.CreatedAt
			}
		}
		if _, err := a.store.Upsert(doc, opts); err != nil {
			res.Skipped++
			res.Rejected[doc.ControlNumber] = err
			continue
		}
		if exists {
			res.Updated++
		} else {
			res.Added++
		}
	}
	if res.Added+res.Updated == 0 {
		return res, nil
	}
	return res, a.save()
}

func (a *App) Export(ctx context.Context, w io.Writer) error {
	if _, err := a.authorize(ctx, document.ActionExport, nil); err != nil {
		return err
	}
	if err := csvio.Write(w, a.store.List(), a.loc); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func (a *App) Template(ctx context.Context, w io.Writer) error {
	if _, err := a.authorize(ctx, document.ActionExport, nil); err != nil {
		return err
	}
	return csvio.WriteTemplate(w)
}
