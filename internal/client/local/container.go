// Package local is the client's persisted key/value container. Every key
// holds one JSON value and the whole container lives in a single file that
// is rewritten atomically on each Set.
package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"doctrack/pkg/fsutil"
)

type Container struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// Open reads path. A missing file is an empty container; an unreadable one
// is moved aside to path+".corrupt" and the container starts empty.
func Open(path string) (*Container, error) {
	c := &Container{path: path, data: map[string]json.RawMessage{}}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c.data); err != nil {
		slog.Warn("local: container unreadable, starting empty", "path", path, "err", err)
		if rerr := os.Rename(path, path+".corrupt"); rerr != nil {
			return nil, fmt.Errorf("move corrupt container: %w", rerr)
		}
		c.data = map[string]json.RawMessage{}
	}
	return c, nil
}

func (c *Container) Path() string { return c.path }

// Get decodes key into v. It reports false when the key is absent.
func (c *Container) Get(key string, v any) (bool, error) {
	c.mu.Lock()
	raw, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (c *Container) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return c.SetMany(map[string]json.RawMessage{key: raw})
}

// SetMany writes several pre-encoded keys in one file rewrite.
func (c *Container) SetMany(values map[string]json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make(map[string]json.RawMessage, len(c.data)+len(values))
	for k, v := range c.data {
		next[k] = v
	}
	for k, v := range values {
		next[k] = v
	}
	if err := c.flush(next); err != nil {
		return err
	}
	c.data = next
	return nil
}

func (c *Container) Delete(keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make(map[string]json.RawMessage, len(c.data))
	changed := false
	for k, v := range c.data {
		next[k] = v
	}
	for _, k := range keys {
		if _, ok := next[k]; ok {
			delete(next, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := c.flush(next); err != nil {
		return err
	}
	c.data = next
	return nil
}

func (c *Container) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.data))
	for k := range c.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Container) flush(data map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode container: %w", err)
	}
	return fsutil.WriteFileAtomic(c.path, raw, 0o600)
}
