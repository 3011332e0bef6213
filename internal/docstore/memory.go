package docstore

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
)

type memDoc struct {
	body    []byte
	version uint64
}

// Memory is an in-process Store used for local development and tests.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string]memDoc
	seq    uint64
	closed bool

	// failures lets tests inject an error for a path and operation.
	failures map[string]error
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memDoc)}
}

// FailOn makes the next operations named op ("get", "set", "remove") on path
// return err until cleared with a nil err.
func (m *Memory) FailOn(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]error)
	}
	key := op + " " + strings.Trim(path, "/")
	if err == nil {
		delete(m.failures, key)
		return
	}
	m.failures[key] = err
}

func (m *Memory) injected(op, path string) error {
	if m.failures == nil {
		return nil
	}
	return m.failures[op+" "+path]
}

func (m *Memory) Get(ctx context.Context, path string, v interface{}) (bool, error) {
	_, found, err := m.GetVersioned(ctx, path, v)
	return found, err
}

func (m *Memory) GetVersioned(ctx context.Context, path string, v interface{}) (string, bool, error) {
	path, err := cleanPath(path)
	if err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	if err := m.injected("get", path); err != nil {
		return "", false, err
	}

	doc, ok := m.docs[path]
	if !ok {
		return "0", false, nil
	}
	if err := decode(doc.body, v); err != nil {
		return "", false, err
	}
	return strconv.FormatUint(doc.version, 10), true, nil
}

func (m *Memory) Set(ctx context.Context, path string, v interface{}) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.injected("set", path); err != nil {
		return err
	}
	m.put(path, body)
	return nil
}

func (m *Memory) SetIfUnchanged(ctx context.Context, path, version string, v interface{}) (bool, error) {
	path, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	if err := m.injected("set", path); err != nil {
		return false, err
	}

	current := "0"
	if doc, ok := m.docs[path]; ok {
		current = strconv.FormatUint(doc.version, 10)
	}
	if current != version {
		return false, nil
	}
	m.put(path, body)
	return true, nil
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.injected("set", path); err != nil {
		return err
	}

	current := map[string]json.RawMessage{}
	if doc, ok := m.docs[path]; ok && !isNull(doc.body) {
		if err := json.Unmarshal(doc.body, &current); err != nil {
			return err
		}
	}
	for key, value := range fields {
		if value == nil {
			delete(current, key)
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		current[key] = raw
	}
	body, err := json.Marshal(current)
	if err != nil {
		return err
	}
	m.put(path, body)
	return nil
}

func (m *Memory) Remove(ctx context.Context, path string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.injected("remove", path); err != nil {
		return err
	}
	prefix := path + "/"
	for key := range m.docs {
		if key == path || strings.HasPrefix(key, prefix) {
			delete(m.docs, key)
		}
	}
	return nil
}

func (m *Memory) List(ctx context.Context, parent string) (map[string]json.RawMessage, error) {
	parent, err := cleanPath(parent)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if err := m.injected("get", parent); err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage)
	prefix := parent + "/"
	for key, doc := range m.docs {
		rest := strings.TrimPrefix(key, prefix)
		if rest == key || strings.Contains(rest, "/") {
			continue
		}
		out[rest] = append(json.RawMessage(nil), doc.body...)
	}
	return out, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) put(path string, body []byte) {
	m.seq++
	m.docs[path] = memDoc{body: body, version: m.seq}
}
