package engine

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/pkg/errors"
)

// ActionRegistry maps action ids to implementations. It is filled once at startup.
type ActionRegistry struct {
	mu           sync.RWMutex
	actions      map[string]core.Action
	order        []string
	capabilities []string
}

// NewActionRegistry creates a registry that accepts actions whose required packages are
// all contained in capabilities.
func NewActionRegistry(capabilities []string) *ActionRegistry {
	return &ActionRegistry{
		actions:      make(map[string]core.Action),
		capabilities: capabilities,
	}
}

func (r *ActionRegistry) Register(a core.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID() == "" {
		return errors.WithMessage(ErrConfiguration, "action without id")
	}
	if _, exists := r.actions[a.ID()]; exists {
		return errors.WithMessagef(ErrConfiguration, "action %s already registered", a.ID())
	}
	for _, pkg := range a.RequiredPackages() {
		if !slices.Contains(r.capabilities, pkg) {
			return errors.WithMessagef(ErrCapabilityMissing, "action %s requires %s", a.ID(), pkg)
		}
	}
	r.actions[a.ID()] = a
	r.order = append(r.order, a.ID())
	slog.Info("Registered action", "action_id", a.ID(), "name", a.Name())
	return nil
}

func (r *ActionRegistry) Get(id string) (core.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	return a, ok
}

// All returns the actions in registration order.
func (r *ActionRegistry) All() []core.Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Action, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.actions[id])
	}
	return out
}

// Supports reports whether the registered action may be configured on a workflow of kind.
func (r *ActionRegistry) Supports(actionID string, kind domain.TriggerKind) (bool, error) {
	a, ok := r.Get(actionID)
	if !ok {
		return false, errors.WithMessagef(ErrActionNotFound, "action %s", actionID)
	}
	return Supports(a, kind), nil
}

func Supports(a core.Action, kind domain.TriggerKind) bool {
	switch kind {
	case domain.TriggerScheduled:
		return a.UsableWithScheduled()
	case domain.TriggerModelEvent:
		return a.UsableWithModelEvent()
	case domain.TriggerCustomEvent:
		return a.UsableWithCustomEvent()
	}
	return false
}

// EntityRegistry holds the entity types that can raise model events.
type EntityRegistry struct {
	mu    sync.RWMutex
	types map[string]core.EntityType
	order []string
}

func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{types: make(map[string]core.EntityType)}
}

func (r *EntityRegistry) Register(et core.EntityType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if et.Name == "" {
		return errors.WithMessage(ErrConfiguration, "entity type without name")
	}
	if _, exists := r.types[et.Name]; exists {
		return errors.WithMessagef(ErrConfiguration, "entity type %s already registered", et.Name)
	}
	if et.DisplayName == "" {
		et.DisplayName = et.Name
	}
	r.types[et.Name] = et
	r.order = append(r.order, et.Name)
	return nil
}

func (r *EntityRegistry) Get(name string) (core.EntityType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	et, ok := r.types[name]
	if !ok {
		return core.EntityType{}, errors.WithMessagef(ErrEntityTypeNotFound, "entity type %s", name)
	}
	return et, nil
}

func (r *EntityRegistry) All() []core.EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.EntityType, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.types[name])
	}
	return out
}
