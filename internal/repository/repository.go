// Package repository is the single persistence gateway shared by every
// service. It is deliberately dumb: no caching, no retries, no business
// validation. Concurrency safety for single-document mutations relies on
// the backing store's per-document atomicity, surfaced here as
// ErrDuplicate and ErrVersionConflict.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/example/game-economy/internal/entity"
	"github.com/example/game-economy/internal/repository/filter"
)

var (
	// ErrNotFound is returned by GetOne/FindOne when no document matches.
	ErrNotFound = errors.New("document not found")
	// ErrNilEntity is returned by Create/Update for a nil or unset entity.
	ErrNilEntity = errors.New("entity is nil or has no id")
	// ErrDuplicate is returned by Create when the id already exists.
	ErrDuplicate = errors.New("document already exists")
	// ErrVersionConflict is returned by Update for a versioned entity when
	// the stored document does not carry the expected prior version.
	ErrVersionConflict = errors.New("document version conflict")
)

// Repository is the generic CRUD contract over one entity type. E is a
// pointer to an entity struct. Updates are full-document replacements; an
// Update against a missing id is a silent no-op, so callers that need to
// distinguish absence must pre-check with GetOne. For a Versioned entity
// a missing id is ErrVersionConflict instead: the expected prior version
// cannot match, and callers in a retry loop re-read on conflict anyway.
type Repository[E entity.Entity] interface {
	GetAll(ctx context.Context) ([]E, error)
	Find(ctx context.Context, expr filter.Expr) ([]E, error)
	GetOne(ctx context.Context, id string) (E, error)
	FindOne(ctx context.Context, expr filter.Expr) (E, error)
	Create(ctx context.Context, e E) error
	Update(ctx context.Context, e E) error
	Remove(ctx context.Context, id string) error
}

// validate rejects nil pointers and entities without an identifier before
// any store call is made.
func validate[E entity.Entity](e E) error {
	if v := reflect.ValueOf(any(e)); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return ErrNilEntity
	}
	if e.GetID() == "" {
		return ErrNilEntity
	}
	return nil
}

// priorVersion reports the version a stored document must carry for a
// replace of e to win, and whether e opts into optimistic concurrency.
func priorVersion[E entity.Entity](e E) (int64, bool) {
	v, ok := any(e).(entity.Versioned)
	if !ok {
		return 0, false
	}
	return v.GetVersion() - 1, true
}

// decode unmarshals a stored JSON document into a freshly allocated E.
// E is always a pointer type, so the element is allocated via reflection.
func decode[E entity.Entity](raw []byte) (E, error) {
	var zero E
	out := reflect.New(reflect.TypeOf(zero).Elem())
	if err := json.Unmarshal(raw, out.Interface()); err != nil {
		return zero, err
	}
	return out.Interface().(E), nil
}
