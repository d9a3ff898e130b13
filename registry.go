package kura

import (
	"math"
	"reflect"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// TypeID is the dense, process-wide identifier of a registered component
// type.
type TypeID uint16

const (
	// TypeNone matches nothing.
	TypeNone TypeID = 0
	// TypeAny matches every type except TypeNone.
	TypeAny TypeID = math.MaxUint16
)

// typeInfo describes one registered type.
type typeInfo struct {
	typ  reflect.Type
	name string
	// self is a single bit derived from the type identity. Tables OR the
	// self bits of their columns.
	self bitset256
	// probe holds the three bits this type contributes to the assignable
	// set of every type that can be used where it is expected.
	probe bitset256
	// assignable is the union of the probe bits of the type itself and of
	// every registered interface it implements.
	assignable bitset256
	ancestors  []TypeID
	newColumn  func(Key) storage
	id         TypeID
	size       uintptr
	unmanaged  bool
}

// registry is append-only. Ids are never reused.
var registry = struct {
	sync.RWMutex
	byType map[reflect.Type]TypeID
	infos  []*typeInfo
}{
	byType: make(map[reflect.Type]TypeID),
	infos:  []*typeInfo{{name: "none"}},
}

// TypeFor returns the TypeID of T, registering T on first use.
//
// Interface types may be registered as well. A query term over an interface
// type matches every column whose type implements it.
func TypeFor[T any]() TypeID {
	t := reflect.TypeFor[T]()
	registry.RLock()
	id, ok := registry.byType[t]
	registry.RUnlock()
	if ok {
		return id
	}
	return register(t, func(id TypeID) func(Key) storage {
		return func(k Key) storage { return newColumn[T](id, k) }
	})
}

func register(t reflect.Type, factory func(TypeID) func(Key) storage) TypeID {
	registry.Lock()
	defer registry.Unlock()
	if id, ok := registry.byType[t]; ok {
		return id
	}
	if len(registry.infos) >= int(TypeAny) {
		panic(&Error{Op: "register " + t.String(), Err: ErrTypeExhausted})
	}

	id := TypeID(len(registry.infos))
	info := &typeInfo{
		id:        id,
		typ:       t,
		name:      t.String(),
		size:      t.Size(),
		unmanaged: isUnmanaged(t),
	}
	info.newColumn = factory(id)

	h := xxhash.Sum64String(t.PkgPath() + "." + t.String())
	info.self.set(uint8(h))
	info.probe.set(uint8(h >> 8))
	info.probe.set(uint8(h >> 16))
	info.probe.set(uint8(h >> 24))
	info.assignable = info.probe
	info.ancestors = []TypeID{id}

	// Link the new type with every interface it implements and, when it is
	// an interface itself, every registered type implementing it.
	for _, other := range registry.infos[1:] {
		if other.typ.Kind() == reflect.Interface && t.Implements(other.typ) {
			info.ancestors = append(info.ancestors, other.id)
			info.assignable = info.assignable.or(other.probe)
		}
		if t.Kind() == reflect.Interface && other.typ.Implements(t) {
			other.ancestors = append(other.ancestors, id)
			other.assignable = other.assignable.or(info.probe)
		}
	}

	registry.infos = append(registry.infos, info)
	registry.byType[t] = id
	return id
}

func typeInfoOf(id TypeID) *typeInfo {
	registry.RLock()
	defer registry.RUnlock()
	if int(id) >= len(registry.infos) {
		return nil
	}
	return registry.infos[id]
}

// TypeName returns the Go name of a registered type.
func TypeName(id TypeID) string {
	switch id {
	case TypeAny:
		return "any"
	case TypeNone:
		return "none"
	}
	if info := typeInfoOf(id); info != nil {
		return info.name
	}
	return "unknown"
}

// TypeOf returns the reflect.Type of a registered type, or nil.
func TypeOf(id TypeID) reflect.Type {
	if id == TypeNone || id == TypeAny {
		return nil
	}
	if info := typeInfoOf(id); info != nil {
		return info.typ
	}
	return nil
}

// typeMatches reports whether a column of type stored satisfies a request
// for type query. A concrete type only matches itself; an interface type
// matches every type implementing it.
func typeMatches(query, stored TypeID) bool {
	switch {
	case query == TypeNone || stored == TypeNone:
		return false
	case query == TypeAny, query == stored:
		return true
	}
	registry.RLock()
	defer registry.RUnlock()
	if int(query) >= len(registry.infos) || int(stored) >= len(registry.infos) {
		return false
	}
	q, s := registry.infos[query], registry.infos[stored]
	if !s.assignable.contains(q.probe) {
		return false
	}
	return slices.Contains(s.ancestors, query)
}

// isUnmanaged reports whether values of t hold no pointers.
func isUnmanaged(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return isUnmanaged(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !isUnmanaged(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}
