// Package registry is the read-only lookup layer between the configuration
// store and the compute orchestrator. It is loaded once at startup into an
// immutable in-memory structure and injected where needed. There is no
// package-level state, so tests can substitute a fake Store.
package registry

import (
	"context"
	"fmt"
	"log"
	"sort"

	"tradedash/internal/indicator"
	"tradedash/internal/model"
)

// Store is the read-side contract the configuration store must satisfy.
// The SQLite implementation lives in internal/store/sqlite; tests use fakes.
type Store interface {
	EnabledIndicators(ctx context.Context) ([]model.Definition, error)
	ParamDefs(ctx context.Context, indicatorID int64) ([]model.ParamDef, error)
	SeriesDefs(ctx context.Context, indicatorID int64) ([]model.SeriesDef, error)
	HandlerName(ctx context.Context, indicatorID int64) (string, error)
}

// Entry bundles everything the orchestrator needs for one indicator code.
type Entry struct {
	Definition model.Definition
	Params     []model.ParamDef
	SeriesDefs []model.SeriesDef
	Handler    indicator.Handler
}

// Registry maps indicator codes to their resolved entries. Immutable after
// Load; safe for concurrent readers without locking.
type Registry struct {
	byCode  map[string]*Entry
	ordered []*Entry // display_order ascending
}

// Load reads all enabled indicator metadata from the store and binds handler
// names to functions. A definition whose handler name is unknown is excluded
// here with a log line; a configuration mistake must not become a runtime
// crash on the compute path.
func Load(ctx context.Context, store Store) (*Registry, error) {
	defs, err := store.EnabledIndicators(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry load: %w", err)
	}

	r := &Registry{byCode: make(map[string]*Entry, len(defs))}
	for _, def := range defs {
		name, err := store.HandlerName(ctx, def.ID)
		if err != nil {
			return nil, fmt.Errorf("registry load handler for %s: %w", def.Code, err)
		}
		h, ok := indicator.Lookup(name)
		if !ok {
			log.Printf("[registry] indicator %s references unknown handler %q, skipping", def.Code, name)
			continue
		}

		params, err := store.ParamDefs(ctx, def.ID)
		if err != nil {
			return nil, fmt.Errorf("registry load params for %s: %w", def.Code, err)
		}
		series, err := store.SeriesDefs(ctx, def.ID)
		if err != nil {
			return nil, fmt.Errorf("registry load series for %s: %w", def.Code, err)
		}

		e := &Entry{Definition: def, Params: params, SeriesDefs: series, Handler: h}
		r.byCode[def.Code] = e
		r.ordered = append(r.ordered, e)
	}

	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Definition.DisplayOrder < r.ordered[j].Definition.DisplayOrder
	})

	log.Printf("[registry] loaded %d indicators", len(r.ordered))
	return r, nil
}

// Get resolves an indicator code. The second return is false for unknown or
// disabled codes.
func (r *Registry) Get(code string) (*Entry, bool) {
	e, ok := r.byCode[code]
	return e, ok
}

// All returns every loaded entry in display order. Callers must not mutate
// the returned slice.
func (r *Registry) All() []*Entry {
	return r.ordered
}

// Definitions returns the loaded indicator definitions in display order.
func (r *Registry) Definitions() []model.Definition {
	out := make([]model.Definition, len(r.ordered))
	for i, e := range r.ordered {
		out[i] = e.Definition
	}
	return out
}
