package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/vial/id"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages registered plugins. Hook implementations are discovered
// once at registration so dispatch never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit            []OnInit
	onShutdown        []OnShutdown
	onShotCreated     []OnShotCreated
	onShotUpdated     []OnShotUpdated
	onShotDeleted     []OnShotDeleted
	onShotDuplicated  []OnShotDuplicated
	onSnapshotApplied []OnSnapshotApplied
	onCapacityBlocked []OnCapacityBlocked
	onLowSupply       []OnLowSupply
	onStoreError      []OnStoreError
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin and caches the hooks it implements.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var names []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		names = append(names, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		names = append(names, "OnShutdown")
	}
	if v, ok := p.(OnShotCreated); ok {
		r.onShotCreated = append(r.onShotCreated, v)
		names = append(names, "OnShotCreated")
	}
	if v, ok := p.(OnShotUpdated); ok {
		r.onShotUpdated = append(r.onShotUpdated, v)
		names = append(names, "OnShotUpdated")
	}
	if v, ok := p.(OnShotDeleted); ok {
		r.onShotDeleted = append(r.onShotDeleted, v)
		names = append(names, "OnShotDeleted")
	}
	if v, ok := p.(OnShotDuplicated); ok {
		r.onShotDuplicated = append(r.onShotDuplicated, v)
		names = append(names, "OnShotDuplicated")
	}
	if v, ok := p.(OnSnapshotApplied); ok {
		r.onSnapshotApplied = append(r.onSnapshotApplied, v)
		names = append(names, "OnSnapshotApplied")
	}
	if v, ok := p.(OnCapacityBlocked); ok {
		r.onCapacityBlocked = append(r.onCapacityBlocked, v)
		names = append(names, "OnCapacityBlocked")
	}
	if v, ok := p.(OnLowSupply); ok {
		r.onLowSupply = append(r.onLowSupply, v)
		names = append(names, "OnLowSupply")
	}
	if v, ok := p.(OnStoreError); ok {
		r.onStoreError = append(r.onStoreError, v)
		names = append(names, "OnStoreError")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", names,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission
// ──────────────────────────────────────────────────

// EmitInit calls OnInit on every plugin that implements it.
func (r *Registry) EmitInit(ctx context.Context, tracker any) {
	emit(ctx, r, "OnInit", hooks(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, tracker)
	})
}

// EmitShutdown calls OnShutdown on every plugin that implements it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", hooks(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitShotCreated emits a record created event.
func (r *Registry) EmitShotCreated(ctx context.Context, shotID id.ShotID, f shot.Fields) {
	emit(ctx, r, "OnShotCreated", hooks(r, &r.onShotCreated), func(p OnShotCreated) error {
		return p.OnShotCreated(ctx, shotID, f)
	})
}

// EmitShotUpdated emits a record updated event.
func (r *Registry) EmitShotUpdated(ctx context.Context, shotID id.ShotID, f shot.Fields) {
	emit(ctx, r, "OnShotUpdated", hooks(r, &r.onShotUpdated), func(p OnShotUpdated) error {
		return p.OnShotUpdated(ctx, shotID, f)
	})
}

// EmitShotDeleted emits a record deleted event.
func (r *Registry) EmitShotDeleted(ctx context.Context, shotID id.ShotID) {
	emit(ctx, r, "OnShotDeleted", hooks(r, &r.onShotDeleted), func(p OnShotDeleted) error {
		return p.OnShotDeleted(ctx, shotID)
	})
}

// EmitShotDuplicated emits a record duplicated event.
func (r *Registry) EmitShotDuplicated(ctx context.Context, sourceID, createdID id.ShotID) {
	emit(ctx, r, "OnShotDuplicated", hooks(r, &r.onShotDuplicated), func(p OnShotDuplicated) error {
		return p.OnShotDuplicated(ctx, sourceID, createdID)
	})
}

// EmitSnapshotApplied emits a ledger snapshot event.
func (r *Registry) EmitSnapshotApplied(ctx context.Context, records int, state supply.State) {
	emit(ctx, r, "OnSnapshotApplied", hooks(r, &r.onSnapshotApplied), func(p OnSnapshotApplied) error {
		return p.OnSnapshotApplied(ctx, records, state)
	})
}

// EmitCapacityBlocked emits a capacity guard rejection.
func (r *Registry) EmitCapacityBlocked(ctx context.Context, state supply.State) {
	emit(ctx, r, "OnCapacityBlocked", hooks(r, &r.onCapacityBlocked), func(p OnCapacityBlocked) error {
		return p.OnCapacityBlocked(ctx, state)
	})
}

// EmitLowSupply emits a low supply alert.
func (r *Registry) EmitLowSupply(ctx context.Context, state supply.State) {
	emit(ctx, r, "OnLowSupply", hooks(r, &r.onLowSupply), func(p OnLowSupply) error {
		return p.OnLowSupply(ctx, state)
	})
}

// EmitStoreError emits a store failure.
func (r *Registry) EmitStoreError(ctx context.Context, op string, err error) {
	emit(ctx, r, "OnStoreError", hooks(r, &r.onStoreError), func(p OnStoreError) error {
		return p.OnStoreError(ctx, op, err)
	})
}

// hooks copies a hook slice header under the read lock.
func hooks[T Plugin](r *Registry, s *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *s
}

// emit calls fn for every plugin, logging failures. Plugins never fail the
// tracker.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin hook failed",
				"hook", hook,
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function, giving up after the registry timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
