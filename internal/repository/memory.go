package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/example/game-economy/internal/entity"
	"github.com/example/game-economy/internal/repository/filter"
)

// Memory is an in-memory repository backend for tests and local runs.
// Documents are stored as marshaled JSON so reads always return a copy
// and a replace can never leak a partially updated struct.
type Memory[E entity.Entity] struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

func NewMemory[E entity.Entity]() *Memory[E] {
	return &Memory[E]{docs: make(map[string]json.RawMessage)}
}

func (m *Memory[E]) GetAll(ctx context.Context) ([]E, error) {
	return m.Find(ctx, nil)
}

func (m *Memory[E]) Find(ctx context.Context, expr filter.Expr) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []E
	for _, raw := range m.docs {
		if expr != nil {
			var doc map[string]any
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, err
			}
			if !filter.Matches(expr, doc) {
				continue
			}
		}
		e, err := decode[E](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *Memory[E]) GetOne(ctx context.Context, id string) (E, error) {
	var zero E
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	m.mu.RLock()
	raw, ok := m.docs[id]
	m.mu.RUnlock()

	if !ok {
		return zero, ErrNotFound
	}
	return decode[E](raw)
}

func (m *Memory[E]) FindOne(ctx context.Context, expr filter.Expr) (E, error) {
	var zero E
	matches, err := m.Find(ctx, expr)
	if err != nil {
		return zero, err
	}
	if len(matches) == 0 {
		return zero, ErrNotFound
	}
	return matches[0], nil
}

func (m *Memory[E]) Create(ctx context.Context, e E) error {
	if err := validate(e); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[e.GetID()]; exists {
		return ErrDuplicate
	}
	m.docs[e.GetID()] = raw
	return nil
}

func (m *Memory[E]) Update(ctx context.Context, e E) error {
	if err := validate(e); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prior, versioned := priorVersion(e)
	current, exists := m.docs[e.GetID()]
	if !exists {
		// Full-document replace of a missing id is a silent no-op; for a
		// versioned entity the expected prior version cannot be present,
		// so the replace is a lost race.
		if versioned {
			return ErrVersionConflict
		}
		return nil
	}
	if versioned {
		var stored struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(current, &stored); err != nil {
			return err
		}
		if stored.Version != prior {
			return ErrVersionConflict
		}
	}
	m.docs[e.GetID()] = raw
	return nil
}

func (m *Memory[E]) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}
