package kura

// AddComponent adds value to e under key. It fails with ErrComponentExists
// when e already holds a T under key.
//
// When called inside a read-scope the change is deferred; validation of
// liveness still happens immediately.
func AddComponent[T any](w *World, e Entity, value T, key Key) error {
	return addComponent(w, e, Keyed(value, key), AddStrict)
}

// SetComponent adds value to e under key, or overwrites the value e already
// holds there.
func SetComponent[T any](w *World, e Entity, value T, key Key) error {
	return addComponent(w, e, Keyed(value, key), AddReplace)
}

func addComponent(w *World, e Entity, c Component, mode AddPolicy) error {
	return w.structural(
		operation{typ: opAddComponent, entities: []Entity{e}, comps: []Component{c}, mode: mode},
		func() error {
			if !w.identities.alive(e) {
				return componentError("add", e, c.ck, ErrEntityNotAlive)
			}
			return w.checkTarget("add", e, c.ck)
		},
		func() error { return w.addLocked(e, c, mode) })
}

// RemoveComponent removes the T e holds under key. It fails with
// ErrComponentMissing when there is none.
func RemoveComponent[T any](w *World, e Entity, key Key) error {
	ck := columnKey{Type: TypeFor[T](), Key: key}
	return w.structural(
		operation{typ: opRemoveComponent, entities: []Entity{e}, ck: ck},
		func() error {
			if !w.identities.alive(e) {
				return componentError("remove", e, ck, ErrEntityNotAlive)
			}
			return nil
		},
		func() error { return w.removeLocked(e, ck) })
}

// GetComponent returns a pointer to the T e holds under key. The pointer
// is valid until the next structural change of the world.
func GetComponent[T any](w *World, e Entity, key Key) (*T, error) {
	ck := columnKey{Type: TypeFor[T](), Key: key}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.identities.alive(e) {
		return nil, componentError("get", e, ck, ErrEntityNotAlive)
	}
	meta := w.metas[e.ID]
	if meta.table == nil {
		return nil, componentError("get", e, ck, ErrComponentMissing)
	}
	col := meta.table.column(ck)
	if col == nil {
		return nil, componentError("get", e, ck, ErrComponentMissing)
	}
	return &col.(*column[T]).data[meta.row], nil
}

// HasComponent reports whether e holds a component of type T whose key is
// selected by m. T may be an interface type.
func HasComponent[T any](w *World, e Entity, m Matcher) bool {
	expr := Expr[T](m)
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.identities.alive(e) {
		return false
	}
	meta := w.metas[e.ID]
	return meta.table != nil && meta.table.matches(expr)
}

// AddRelation adds value to e keyed by target.
func AddRelation[T any](w *World, e, target Entity, value T) error {
	return AddComponent(w, e, value, Relation(target))
}

// RemoveRelation removes the T relating e to target.
func RemoveRelation[T any](w *World, e, target Entity) error {
	return RemoveComponent[T](w, e, Relation(target))
}

// Relations returns the targets of every T relation e holds.
func Relations[T any](w *World, e Entity) []Entity {
	id := TypeFor[T]()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.identities.alive(e) {
		return nil
	}
	meta := w.metas[e.ID]
	if meta.table == nil {
		return nil
	}
	var targets []Entity
	for _, ck := range meta.table.signature {
		if target, ok := ck.Key.Target(); ok && ck.Type == id {
			targets = append(targets, target)
		}
	}
	return targets
}

// AddLink links e to obj. The component value is obj itself, stored under
// Link(obj); T must be a pointer type.
func AddLink[T any](w *World, e Entity, obj T) error {
	return AddComponent(w, e, obj, Link(obj))
}

// RemoveLink removes the link from e to obj.
func RemoveLink[T any](w *World, e Entity, obj T) error {
	return RemoveComponent[T](w, e, Link(obj))
}
