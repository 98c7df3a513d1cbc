package app

import (
	"context"
	"time"

	"doctrack/internal/domain/document"
)

// Bulk operations are admin-only as a whole, then each target goes through
// the same per-document rules as the single operation. One save covers the
// batch.

func (a *App) BulkReceive(ctx context.Context, cns []string) (document.BulkResult, error) {
	act, err := a.authorize(ctx, document.ActionBulkReceive, nil)
	if err != nil {
		return document.BulkResult{}, err
	}
	res := document.ApplyEach(cns, func(cn string) error {
		_, err := a.apply(cn, act, document.Receive)
		return err
	})
	return res, a.saveIfApplied(res)
}

func (a *App) BulkUpdateStatus(ctx context.Context, cns []string, s document.Status) (document.BulkResult, error) {
	act, err := a.authorize(ctx, document.ActionBulkStatus, nil)
	if err != nil {
		return document.BulkResult{}, err
	}
	res := document.ApplyEach(cns, func(cn string) error {
		_, err := a.apply(cn, act, func(d document.Document, act document.Actor, now time.Time) (document.Document, error) {
			return document.SetStatus(d, act, s, now)
		})
		return err
	})
	return res, a.saveIfApplied(res)
}

func (a *App) BulkDelete(ctx context.Context, cns []string) (document.BulkResult, error) {
	act, err := a.authorize(ctx, document.ActionBulkDelete, nil)
	if err != nil {
		return document.BulkResult{}, err
	}
	res := document.ApplyEach(cns, func(cn string) error {
		cur, ok := a.store.Get(cn)
		if err := document.Authorize(act.Role, document.ActionDelete, docOrNil(cur, ok)); err != nil {
			return err
		}
		_, err := a.store.SoftDelete(cn)
		return err
	})
	return res, a.saveIfApplied(res)
}

func (a *App) saveIfApplied(res document.BulkResult) error {
	if res.AppliedCount() == 0 {
		return nil
	}
	return a.save()
}
