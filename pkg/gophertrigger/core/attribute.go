package core

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrAttributeNotFound = errors.New("attribute not found")

// AttributeSource is implemented by every entity that can appear in a triggering context.
// Get returns ErrAttributeNotFound (possibly wrapped) for unknown names.
type AttributeSource interface {
	Get(name string) (any, error)
}

// MethodSource is optionally implemented by entities exposing zero-argument accessors.
// Entities without it have `name()` tokens resolved through Get.
type MethodSource interface {
	Call(name string) (any, error)
}

// MapSource adapts a plain map, such as a custom event payload or a row snapshot.
// Nested maps come back as MapSource so relation paths keep working.
type MapSource map[string]any

func (m MapSource) Get(name string) (any, error) {
	v, ok := m[name]
	if !ok {
		return nil, errors.WithMessagef(ErrAttributeNotFound, "attribute %q", name)
	}
	if nested, ok := v.(map[string]any); ok {
		return MapSource(nested), nil
	}
	return v, nil
}

// FuncSource is a map-backed entity with accessor functions. Accessors are also
// reachable through Get, the way a relation is readable as a property.
type FuncSource struct {
	Attributes MapSource
	Methods    map[string]func() (any, error)
}

func (f FuncSource) Get(name string) (any, error) {
	if v, err := f.Attributes.Get(name); err == nil {
		return v, nil
	}
	if fn, ok := f.Methods[name]; ok {
		return fn()
	}
	return nil, errors.WithMessagef(ErrAttributeNotFound, "attribute %q", name)
}

func (f FuncSource) Call(name string) (any, error) {
	fn, ok := f.Methods[name]
	if !ok {
		return nil, errors.WithMessagef(ErrAttributeNotFound, "method %q", name)
	}
	return fn()
}

// Resolve evaluates an attribute expression against src:
//
//	name              Get(name)
//	name()            Call(name), or Get(name) when src has no methods
//	relation->attr    Get(relation), then Get(attr) on the result
func Resolve(src AttributeSource, expr string) (any, error) {
	if src == nil {
		return nil, errors.WithMessagef(ErrAttributeNotFound, "no source for %q", expr)
	}
	parts := strings.Split(expr, "->")
	var current any = src
	for i, part := range parts {
		part = strings.TrimSpace(part)
		holder, ok := current.(AttributeSource)
		if !ok {
			if m, isMap := current.(map[string]any); isMap {
				holder = MapSource(m)
			} else {
				return nil, errors.WithMessagef(ErrAttributeNotFound, "%q is not traversable at %q", strings.Join(parts[:i], "->"), part)
			}
		}
		v, err := get(holder, part)
		if err != nil {
			return nil, err
		}
		current = v
	}
	return current, nil
}

func get(src AttributeSource, part string) (any, error) {
	if method, isCall := strings.CutSuffix(part, "()"); isCall {
		if ms, ok := src.(MethodSource); ok {
			return ms.Call(method)
		}
		return src.Get(method)
	}
	return src.Get(part)
}
