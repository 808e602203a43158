// Package registry maps item type tags to their handlers.
//
// Startup is two-phase: handlers are registered on a Builder, then Build
// validates that every declared variant is bound. Stores and services only
// accept the *Registry returned by Build, so an incomplete registry cannot
// reach them.
package registry

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// Handler knows how to construct and describe one item variant.
type Handler interface {
	Type() models.ItemType
	TableName() string
	FieldNames() []string
	FieldType(name string) (models.FieldKind, bool)
	New() models.Item
}

// Declared lists the variants every registry must bind, in declaration
// order. This order is also the priority order for decryption.
var Declared = []models.ItemType{
	models.TypeNote,
	models.TypeFolder,
	models.TypeResource,
	models.TypeMasterKey,
}

type Builder struct {
	handlers map[models.ItemType]Handler
}

func NewBuilder() *Builder {
	return &Builder{handlers: make(map[models.ItemType]Handler)}
}

// Register binds tag to h. Registering the same handler twice is a no-op;
// binding a different handler to an already bound tag fails.
func (b *Builder) Register(tag models.ItemType, h Handler) error {
	if h == nil {
		return fmt.Errorf("register %s: nil handler", tag)
	}
	if h.Type() != tag {
		return fmt.Errorf("register %s: handler is for %s: %w", tag, h.Type(), common.ErrConflictingHandler)
	}
	if cur, ok := b.handlers[tag]; ok {
		if cur == h {
			return nil
		}
		return fmt.Errorf("register %s: %w", tag, common.ErrConflictingHandler)
	}
	b.handlers[tag] = h
	return nil
}

// Build freezes the builder into a Registry.
func (b *Builder) Build() (*Registry, error) {
	r := &Registry{handlers: make(map[models.ItemType]Handler, len(b.handlers))}
	for _, tag := range Declared {
		h, ok := b.handlers[tag]
		if !ok {
			return nil, fmt.Errorf("%s: %w", tag, common.ErrUnboundVariant)
		}
		r.handlers[tag] = h
		r.order = append(r.order, tag)
	}
	return r, nil
}

// Registry is an immutable, validated set of handlers.
type Registry struct {
	handlers map[models.ItemType]Handler
	order    []models.ItemType
}

func (r *Registry) Resolve(tag models.ItemType) (Handler, error) {
	h, ok := r.handlers[tag]
	if !ok {
		return nil, fmt.Errorf("%s: %w", tag, common.ErrUnknownType)
	}
	return h, nil
}

// ResolveByInstance picks the handler from the type_ property of a decoded
// field map. The value may be an int, an int64 or a decimal string.
func (r *Registry) ResolveByInstance(fields map[string]any) (Handler, error) {
	raw, ok := fields[models.FieldType]
	if !ok || raw == nil || raw == "" {
		return nil, common.ErrMissingDiscriminant
	}

	var tag models.ItemType
	switch v := raw.(type) {
	case models.ItemType:
		tag = v
	case int:
		tag = models.ItemType(v)
	case int64:
		tag = models.ItemType(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("type_ %q: %w", v, common.ErrUnknownType)
		}
		tag = models.ItemType(n)
	default:
		return nil, fmt.Errorf("type_ of kind %T: %w", raw, common.ErrUnknownType)
	}
	return r.Resolve(tag)
}

// Types returns all bound variants in declaration order.
func (r *Registry) Types() []models.ItemType {
	out := make([]models.ItemType, len(r.order))
	copy(out, r.order)
	return out
}

// EncryptableTypes is Types without MasterKey.
func (r *Registry) EncryptableTypes() []models.ItemType {
	var out []models.ItemType
	for _, t := range r.order {
		if t != models.TypeMasterKey {
			out = append(out, t)
		}
	}
	return out
}
