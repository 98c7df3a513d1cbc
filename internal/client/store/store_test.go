package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"doctrack/internal/client/local"
	"doctrack/internal/domain/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingPusher struct {
	mu    sync.Mutex
	calls [][]document.Document
}

func (p *recordingPusher) Push(docs []document.Document) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, docs)
}

func newStore(t *testing.T) (*Store, *local.Container, *clock) {
	t.Helper()
	kv, err := local.Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	clk := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := New(kv, WithClock(clk.now))
	require.NoError(t, s.Load())
	return s, kv, clk
}

func doc(cn, title string) document.Document {
	return document.Document{ControlNumber: cn, Title: title}
}

func TestUpsertPrependsNewAndStampsTimes(t *testing.T) {
	s, _, clk := newStore(t)

	a, err := s.Upsert(doc("ECOM-2024-0001", "A"), UpsertOptions{})
	require.NoError(t, err)
	assert.Equal(t, clk.t.UnixMilli(), a.CreatedAt)
	assert.Equal(t, clk.t.UnixMilli(), a.UpdatedAt)
	assert.Equal(t, document.StatusRevision, a.Status)
	assert.Equal(t, document.WinsPending, a.WinsStatus)

	_, err = s.Upsert(doc("ECOM-2024-0002", "B"), UpsertOptions{})
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "ECOM-2024-0002", list[0].ControlNumber)
}

func TestUpsertKeepsCreatedAtAcrossUpdates(t *testing.T) {
	s, _, clk := newStore(t)
	first, err := s.Upsert(doc("ECOM-2024-0001", "A"), UpsertOptions{})
	require.NoError(t, err)

	clk.advance(time.Hour)
	upd := first
	upd.Title = "A2"
	upd.CreatedAt = clk.t.Add(-48 * time.Hour).UnixMilli()
	got, err := s.Upsert(upd, UpsertOptions{})
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
	assert.Equal(t, clk.t.UnixMilli(), got.UpdatedAt)

	override := clk.t.Add(-48 * time.Hour).UnixMilli()
	upd.CreatedAt = override
	got, err = s.Upsert(upd, UpsertOptions{OverrideCreatedAt: true})
	require.NoError(t, err)
	assert.Equal(t, override, got.CreatedAt)
}

func TestUpsertRejectsInvalid(t *testing.T) {
	s, _, clk := newStore(t)

	_, err := s.Upsert(doc("ECOM-24-1", "A"), UpsertOptions{})
	assert.ErrorIs(t, err, document.ErrInvalidControlNumber)

	_, err = s.Upsert(doc("ECOM-2024-0001", " "), UpsertOptions{})
	assert.ErrorIs(t, err, document.ErrTitleRequired)

	future := doc("ECOM-2024-0001", "A")
	future.CreatedAt = clk.t.Add(2 * time.Minute).UnixMilli()
	_, err = s.Upsert(future, UpsertOptions{})
	assert.ErrorIs(t, err, document.ErrCreatedAtInFuture)

	skewed := doc("ECOM-2024-0001", "A")
	skewed.CreatedAt = clk.t.Add(30 * time.Second).UnixMilli()
	_, err = s.Upsert(skewed, UpsertOptions{})
	assert.NoError(t, err)

	assert.Len(t, s.List(), 1)
}

func TestInsertRejectsDuplicate(t *testing.T) {
	s, _, _ := newStore(t)
	_, err := s.Insert(doc("ECOM-2024-0001", "A"))
	require.NoError(t, err)
	_, err = s.Insert(doc("ECOM-2024-0001", "again"))
	assert.ErrorIs(t, err, document.ErrDuplicateControlNumber)
	assert.Len(t, s.List(), 1)
}

func TestUpsertThenLoadRoundTrip(t *testing.T) {
	s, kv, _ := newStore(t)
	in := doc("ECOM-2024-0001", "A")
	in.Owner = "alice"
	in.Notes = "first"
	saved, err := s.Upsert(in, UpsertOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Save())

	reopened, err := local.Open(kv.Path())
	require.NoError(t, err)
	other := New(reopened)
	require.NoError(t, other.Load())

	got, ok := other.Get("ECOM-2024-0001")
	require.True(t, ok)
	assert.Equal(t, saved, got)
}

func TestLoadResetsUnreadableCollection(t *testing.T) {
	s, kv, _ := newStore(t)
	_, err := s.Upsert(doc("ECOM-2024-0001", "A"), UpsertOptions{})
	require.NoError(t, err)
	_, err = s.SoftDelete("ECOM-2024-0001")
	require.NoError(t, err)
	require.NoError(t, s.Save())

	require.NoError(t, kv.SetMany(map[string]json.RawMessage{KeyDocs: json.RawMessage(`"garbage"`)}))

	require.NoError(t, s.Load())
	assert.Empty(t, s.List())
	assert.Len(t, s.Archive(), 1)
}

func TestSoftDeleteRestoreRoundTrip(t *testing.T) {
	s, _, clk := newStore(t)
	in := doc("ECOM-2024-0001", "A")
	in.Notes = "keep me"
	before, err := s.Upsert(in, UpsertOptions{})
	require.NoError(t, err)

	clk.advance(time.Minute)
	_, err = s.SoftDelete("ECOM-2024-0001")
	require.NoError(t, err)
	assert.Empty(t, s.List())

	archived := s.Archive()
	require.Len(t, archived, 1)
	assert.Equal(t, clk.t.UnixMilli(), archived[0].DeletedAt)

	ok, err := s.Restore("ECOM-2024-0001")
	require.NoError(t, err)
	require.True(t, ok)

	after, found := s.Get("ECOM-2024-0001")
	require.True(t, found)
	assert.Equal(t, before, after)
	assert.Zero(t, after.DeletedAt)
	assert.Empty(t, s.Archive())
}

func TestRestoreMissingAndConflict(t *testing.T) {
	s, _, _ := newStore(t)
	ok, err := s.Restore("ECOM-2024-0009")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Upsert(doc("ECOM-2024-0001", "A"), UpsertOptions{})
	require.NoError(t, err)
	_, err = s.SoftDelete("ECOM-2024-0001")
	require.NoError(t, err)
	_, err = s.Upsert(doc("ECOM-2024-0001", "replacement"), UpsertOptions{})
	require.NoError(t, err)

	ok, err = s.Restore("ECOM-2024-0001")
	assert.False(t, ok)
	assert.ErrorIs(t, err, document.ErrDuplicateControlNumber)
}

func TestSoftDeleteMissing(t *testing.T) {
	s, _, _ := newStore(t)
	_, err := s.SoftDelete("ECOM-2024-0001")
	assert.True(t, errors.Is(err, document.ErrNotFound))
}

func TestPurge(t *testing.T) {
	s, _, _ := newStore(t)
	_, err := s.Upsert(doc("ECOM-2024-0001", "A"), UpsertOptions{})
	require.NoError(t, err)
	_, err = s.SoftDelete("ECOM-2024-0001")
	require.NoError(t, err)

	assert.True(t, s.Purge("ECOM-2024-0001"))
	assert.False(t, s.Purge("ECOM-2024-0001"))
	assert.Empty(t, s.Archive())
}

func TestRenameMovesToFrontKeepingCreatedAt(t *testing.T) {
	s, _, clk := newStore(t)
	_, err := s.Upsert(doc("ECOM-2024-0001", "A"), UpsertOptions{})
	require.NoError(t, err)
	clk.advance(time.Minute)
	orig, err := s.Upsert(doc("ECOM-2024-0002", "B"), UpsertOptions{})
	require.NoError(t, err)
	_, err = s.Upsert(doc("ECOM-2024-0003", "C"), UpsertOptions{})
	require.NoError(t, err)

	clk.advance(time.Hour)
	renamed := orig
	renamed.ControlNumber = "ECOM-2024-0099"
	renamed.CreatedAt = 0
	got, err := s.Rename("ECOM-2024-0002", renamed, UpsertOptions{})
	require.NoError(t, err)
	assert.Equal(t, orig.CreatedAt, got.CreatedAt)
	assert.Equal(t, clk.t.UnixMilli(), got.UpdatedAt)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"ECOM-2024-0099", "ECOM-2024-0003", "ECOM-2024-0001"},
		[]string{list[0].ControlNumber, list[1].ControlNumber, list[2].ControlNumber})
	assert.False(t, s.Has("ECOM-2024-0002"))
	assert.Empty(t, s.Archive())
}

func TestRenameRejectsTakenKey(t *testing.T) {
	s, _, _ := newStore(t)
	_, err := s.Upsert(doc("ECOM-2024-0001", "A"), UpsertOptions{})
	require.NoError(t, err)
	b, err := s.Upsert(doc("ECOM-2024-0002", "B"), UpsertOptions{})
	require.NoError(t, err)

	b.ControlNumber = "ECOM-2024-0001"
	_, err = s.Rename("ECOM-2024-0002", b, UpsertOptions{})
	assert.ErrorIs(t, err, document.ErrDuplicateControlNumber)

	_, err = s.Rename("ECOM-2024-0404", b, UpsertOptions{})
	assert.ErrorIs(t, err, document.ErrNotFound)
	assert.Len(t, s.List(), 2)
}

func TestSaveHandsCollectionToPusher(t *testing.T) {
	s, _, _ := newStore(t)
	p := &recordingPusher{}
	s.SetPusher(p)

	_, err := s.Upsert(doc("ECOM-2024-0001", "A"), UpsertOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Save())

	require.Len(t, p.calls, 1)
	require.Len(t, p.calls[0], 1)
	assert.Equal(t, "ECOM-2024-0001", p.calls[0][0].ControlNumber)
}

func TestReplaceOnlyWhenDifferent(t *testing.T) {
	s, kv, _ := newStore(t)
	p := &recordingPusher{}
	s.SetPusher(p)
	changes := 0
	s.OnChange(func() { changes++ })

	remote := []document.Document{doc("ECOM-2024-0001", "A"), doc("ECOM-2024-0002", "B")}
	changed, err := s.Replace(remote)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, changes)

	changed, err = s.Replace(remote)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, changes)
	assert.Empty(t, p.calls)

	var persisted []document.Document
	ok, err := kv.Get(KeyDocs, &persisted)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, remote, persisted)
}

func TestOnChangeFiresPerMutation(t *testing.T) {
	s, _, _ := newStore(t)
	changes := 0
	s.OnChange(func() { changes++ })

	_, err := s.Upsert(doc("ECOM-2024-0001", "A"), UpsertOptions{})
	require.NoError(t, err)
	_, err = s.SoftDelete("ECOM-2024-0001")
	require.NoError(t, err)
	_, err = s.Restore("ECOM-2024-0001")
	require.NoError(t, err)
	assert.Equal(t, 3, changes)
}

func TestUpsertKeepUpdatedAt(t *testing.T) {
	s, _, clk := newStore(t)
	in := doc("ECOM-2024-0001", "A")
	in.UpdatedAt = clk.t.Add(-time.Hour).UnixMilli()

	got, err := s.Upsert(in, UpsertOptions{KeepUpdatedAt: true})
	require.NoError(t, err)
	assert.Equal(t, in.UpdatedAt, got.UpdatedAt)

	in.UpdatedAt = 0
	got, err = s.Upsert(in, UpsertOptions{KeepUpdatedAt: true})
	require.NoError(t, err)
	assert.Equal(t, clk.t.UnixMilli(), got.UpdatedAt)
}
