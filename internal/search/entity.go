package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownNamespace signals a namespace that was never registered.
	ErrUnknownNamespace = errors.New("search: unknown namespace")
	// ErrNoActiveTransaction signals a capture outside an in-flight transaction.
	ErrNoActiveTransaction = errors.New("search: no active transaction")
)

// Entity is implemented by every record type that can be full-text indexed.
type Entity interface {
	// SearchNamespace returns the table name, used as the index namespace.
	SearchNamespace() string
	// SearchID returns the stable row identifier.
	SearchID() int64
	// SearchValue returns the value of one indexed field.
	SearchValue(field string) string
}

// Kind declares a searchable entity type.
type Kind struct {
	Namespace string
	// Fields are indexed in this order.
	Fields []string
	// Scan calls fn for every persisted row of the kind. Used by Reindex.
	Scan func(ctx context.Context, fn func(Entity) error) error
}

// Field is one indexed field value.
type Field struct {
	Name  string
	Value string
}

// Document is the index representation of an entity.
type Document struct {
	Namespace string
	ID        int64
	Fields    []Field
}

// Text concatenates all field values, space separated.
func (d Document) Text() string {
	n := 0
	for _, f := range d.Fields {
		n += len(f.Value) + 1
	}
	buf := make([]byte, 0, n)
	for i, f := range d.Fields {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, f.Value...)
	}
	return string(buf)
}

// DocumentOf builds the index document of e using the kind's field list.
func DocumentOf(kind Kind, e Entity) Document {
	fields := make([]Field, len(kind.Fields))
	for i, name := range kind.Fields {
		fields[i] = Field{Name: name, Value: e.SearchValue(name)}
	}
	return Document{Namespace: kind.Namespace, ID: e.SearchID(), Fields: fields}
}

// Registry enumerates the searchable kinds.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds a kind. Namespaces must be unique.
func (r *Registry) Register(k Kind) error {
	if k.Namespace == "" {
		return fmt.Errorf("register kind: namespace is required")
	}
	if len(k.Fields) == 0 {
		return fmt.Errorf("register kind %s: at least one field is required", k.Namespace)
	}
	seen := make(map[string]struct{}, len(k.Fields))
	for _, f := range k.Fields {
		if f == "" {
			return fmt.Errorf("register kind %s: empty field name", k.Namespace)
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("register kind %s: duplicate field %q", k.Namespace, f)
		}
		seen[f] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[k.Namespace]; ok {
		return fmt.Errorf("register kind %s: already registered", k.Namespace)
	}
	k.Fields = append([]string(nil), k.Fields...)
	r.kinds[k.Namespace] = k
	r.order = append(r.order, k.Namespace)
	return nil
}

// Lookup returns the kind registered under namespace.
func (r *Registry) Lookup(namespace string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[namespace]
	return k, ok
}

// Kinds returns all kinds in registration order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.order))
	for _, ns := range r.order {
		out = append(out, r.kinds[ns])
	}
	return out
}

// searchable returns obj as an Entity when its type implements the contract
// and its namespace is registered.
func (r *Registry) searchable(obj any) (Entity, Kind, bool) {
	e, ok := obj.(Entity)
	if !ok {
		return nil, Kind{}, false
	}
	k, ok := r.Lookup(e.SearchNamespace())
	if !ok {
		return nil, Kind{}, false
	}
	return e, k, true
}
