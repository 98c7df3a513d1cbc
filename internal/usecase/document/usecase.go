package document

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "doctrack/internal/domain/document"
	"doctrack/internal/domain/uow"
)

// Notifier is told after the shared collection changed.
type Notifier interface {
	DocsUpdated(ctx context.Context)
}

type nopNotifier struct{}

func (nopNotifier) DocsUpdated(context.Context) {}

type Usecase struct {
	repo   domain.Repository
	uow    uow.UnitOfWork
	notify Notifier
	now    func() time.Time
}

func NewUsecase(r domain.Repository, tx uow.UnitOfWork, n Notifier) *Usecase {
	if n == nil {
		n = nopNotifier{}
	}
	return &Usecase{repo: r, uow: tx, notify: n, now: time.Now}
}

func (u *Usecase) List(ctx context.Context) (*ListDTO, error) {
	docs, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return &ListDTO{Docs: docs}, nil
}

// ReplaceAll swaps the whole collection for in.Docs. Concurrent pushes are
// last-writer-wins. Only keys are checked since the store is keyed by
// control number; field contents are the client's business.
func (u *Usecase) ReplaceAll(ctx context.Context, in ReplaceInput) error {
	seen := make(map[string]struct{}, len(in.Docs))
	for _, d := range in.Docs {
		if !domain.ValidControlNumber(d.ControlNumber) {
			return fmt.Errorf("%w: %q", domain.ErrInvalidControlNumber, d.ControlNumber)
		}
		if _, dup := seen[d.ControlNumber]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateControlNumber, d.ControlNumber)
		}
		seen[d.ControlNumber] = struct{}{}
	}
	if err := u.repo.ReplaceAll(ctx, in.Docs); err != nil {
		return err
	}
	u.notify.DocsUpdated(ctx)
	return nil
}

func (u *Usecase) Get(ctx context.Context, controlNumber string) (*DocDTO, error) {
	d, err := u.repo.GetByControlNumber(ctx, controlNumber)
	if err != nil {
		return nil, err
	}
	return &DocDTO{Doc: d}, nil
}

// Patch shallow-merges fields onto the stored document. The control number
// is the path key and cannot be changed here; updatedAt is stamped unless
// the patch carries one.
func (u *Usecase) Patch(ctx context.Context, controlNumber string, patch map[string]json.RawMessage) (*DocDTO, error) {
	var out domain.Document
	err := u.uow.WithinDocumentTx(ctx, controlNumber, func(r uow.Repos, d *domain.Document) error {
		merged, err := merge(*d, patch)
		if err != nil {
			return err
		}
		merged.ControlNumber = d.ControlNumber
		if _, ok := patch["status"]; ok && !merged.Status.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, merged.Status)
		}
		if _, ok := patch["winsStatus"]; ok && !merged.WinsStatus.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidWinsStatus, merged.WinsStatus)
		}
		now := u.now()
		if _, ok := patch["createdAt"]; ok {
			if err := domain.ValidateCreatedAt(merged.CreatedAt, now); err != nil {
				return err
			}
		}
		if _, ok := patch["updatedAt"]; !ok {
			merged.UpdatedAt = now.UnixMilli()
		}
		merged.Position = d.Position
		if err := r.Documents.Save(ctx, &merged); err != nil {
			return err
		}
		out = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.notify.DocsUpdated(ctx)
	return &DocDTO{OK: true, Doc: &out}, nil
}

func merge(d domain.Document, patch map[string]json.RawMessage) (domain.Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return d, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return d, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	raw, err = json.Marshal(fields)
	if err != nil {
		return d, err
	}
	var out domain.Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return out, nil
}
