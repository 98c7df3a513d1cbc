// Package syncer mirrors the local document store to the remote one: a
// polling pull, a fire-and-forget replace-all push, and a WebSocket hint
// that triggers an immediate pull.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"doctrack/internal/client/remote"
	"doctrack/internal/domain/document"
)

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultReconnectDelay = 3 * time.Second

	requestTimeout = 10 * time.Second
)

var ErrOffline = errors.New("remote store unreachable")

// Remote is the slice of the wire client the syncer needs.
type Remote interface {
	Health(ctx context.Context) error
	ListDocuments(ctx context.Context) ([]document.Document, error)
	PushDocuments(ctx context.Context, docs []document.Document) error
	Subscribe(ctx context.Context, fn func(remote.Event)) error
}

// Local is the slice of the document store the syncer needs.
type Local interface {
	Replace(docs []document.Document) (bool, error)
}

type Config struct {
	PollInterval   time.Duration
	ReconnectDelay time.Duration
}

type Syncer struct {
	remote Remote
	local  Local
	cfg    Config
	log    *slog.Logger

	mu     sync.Mutex
	online bool
	cancel context.CancelFunc
	group  *errgroup.Group
	pushes sync.WaitGroup
	pullMu sync.Mutex
	onPull func(changed bool)
}

func New(r Remote, l Local, cfg Config, log *slog.Logger) *Syncer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{remote: r, local: l, cfg: cfg, log: log}
}

// OnPull registers a hook called after every successful pull.
func (s *Syncer) OnPull(fn func(changed bool)) {
	s.mu.Lock()
	s.onPull = fn
	s.mu.Unlock()
}

// Online reports whether the startup health check reached the server.
func (s *Syncer) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Start checks the server once. When it is unreachable the syncer stays
// local-only for the rest of the session and ErrOffline is returned.
// Otherwise it pulls immediately and keeps the poll and push-channel loops
// running until Stop or ctx ends.
func (s *Syncer) Start(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, requestTimeout)
	err := s.remote.Health(hctx)
	cancel()
	if err != nil {
		s.log.Warn("sync: server unreachable, running local-only", "err", err)
		return ErrOffline
	}

	runCtx, stop := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	s.mu.Lock()
	s.online = true
	s.cancel = stop
	s.group = g
	s.mu.Unlock()

	if _, err := s.Pull(gctx); err != nil {
		s.log.Warn("sync: initial pull failed", "err", err)
	}
	g.Go(func() error { s.pollLoop(gctx); return nil })
	g.Go(func() error { s.pushChannelLoop(gctx); return nil })
	return nil
}

// Stop ends both loops and waits for in-flight pushes.
func (s *Syncer) Stop() {
	s.mu.Lock()
	cancel, g := s.cancel, s.group
	s.cancel, s.group = nil, nil
	s.online = false
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if g != nil {
		_ = g.Wait()
	}
	s.pushes.Wait()
}

// Pull fetches the remote collection and hands it to the local store, which
// only swaps it in when it differs.
func (s *Syncer) Pull(ctx context.Context) (bool, error) {
	s.pullMu.Lock()
	defer s.pullMu.Unlock()
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	docs, err := s.remote.ListDocuments(reqCtx)
	if err != nil {
		return false, err
	}
	changed, err := s.local.Replace(docs)
	if err != nil {
		return changed, err
	}
	s.mu.Lock()
	hook := s.onPull
	s.mu.Unlock()
	if hook != nil {
		hook(changed)
	}
	return changed, nil
}

// Push sends the full collection in the background. Errors are logged and
// dropped; the next pull reconciles.
func (s *Syncer) Push(docs []document.Document) {
	snapshot := make([]document.Document, len(docs))
	copy(snapshot, docs)
	// online and pushes move together under mu; Stop relies on it.
	s.mu.Lock()
	if !s.online {
		s.mu.Unlock()
		return
	}
	s.pushes.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.pushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := s.remote.PushDocuments(ctx, snapshot); err != nil {
			s.log.Warn("sync: push failed", "docs", len(snapshot), "err", err)
		}
	}()
}

func (s *Syncer) pollLoop(ctx context.Context) {
	t := time.NewTicker(s.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Pull(ctx); err != nil && ctx.Err() == nil {
				s.log.Debug("sync: poll failed", "err", err)
			}
		}
	}
}

// pushChannelLoop keeps one subscription open, pulling on every
// docs_updated and reconnecting after ReconnectDelay when it drops.
func (s *Syncer) pushChannelLoop(ctx context.Context) {
	for {
		err := s.remote.Subscribe(ctx, func(ev remote.Event) {
			if ev.Type != remote.TypeDocsUpdated {
				return
			}
			if _, err := s.Pull(ctx); err != nil && ctx.Err() == nil {
				s.log.Debug("sync: pull after push hint failed", "err", err)
			}
		})
		if ctx.Err() != nil {
			return
		}
		s.log.Debug("sync: push channel down, reconnecting", "err", err, "delay", s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}
