package kura

import (
	"errors"
	"strings"
)

var (
	// ErrEntityNotAlive is returned when an operation targets a despawned or
	// never-spawned entity.
	ErrEntityNotAlive = errors.New("kura: entity is not alive")
	// ErrComponentExists is returned when adding a component the entity
	// already holds under the same key.
	ErrComponentExists = errors.New("kura: component already exists")
	// ErrComponentMissing is returned when reading or removing a component
	// the entity does not hold.
	ErrComponentMissing = errors.New("kura: component not found")
	// ErrWildcardWrite is returned by write protocols whose shape contains a
	// wildcard match.
	ErrWildcardWrite = errors.New("kura: wildcard match used as write destination")
	// ErrCollectionModified is raised by enumerable iteration when the table
	// it walks changed between steps.
	ErrCollectionModified = errors.New("kura: table modified during enumeration")
	// ErrIdentityExhausted is raised when no entity index can be minted.
	ErrIdentityExhausted = errors.New("kura: entity id space exhausted")
	// ErrGenerationExhausted is raised when an index can no longer be recycled.
	ErrGenerationExhausted = errors.New("kura: entity generation space exhausted")
	// ErrTypeExhausted is raised when the type registry is full.
	ErrTypeExhausted = errors.New("kura: too many component types")
	// ErrWorldExhausted is raised when no world id is free.
	ErrWorldExhausted = errors.New("kura: too many worlds")
	// ErrOutOfBounds is raised on a row index past the table count.
	ErrOutOfBounds = errors.New("kura: row index out of bounds")
	// ErrInvalidLink is raised when a link key is derived from a value that
	// has no pointer identity.
	ErrInvalidLink = errors.New("kura: link target must be a non-nil pointer")
	// ErrJobPanic wraps a panic recovered from a parallel job chunk.
	ErrJobPanic = errors.New("kura: job panicked")
	// ErrManagedType is returned by bulk numeric operations on component
	// types that contain pointers.
	ErrManagedType = errors.New("kura: component type is not unmanaged")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("kura: invalid config")
	// ErrWorldClosed is returned by operations on a closed world.
	ErrWorldClosed = errors.New("kura: world is closed")
)

// Error carries the operation and the entity, component type and key an
// error happened on. It wraps one of the package sentinels.
type Error struct {
	Op     string
	Entity Entity
	Type   TypeID
	Key    Key
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if !e.Entity.IsNone() {
		b.WriteString(" ")
		b.WriteString(e.Entity.String())
	}
	if e.Type != TypeNone {
		b.WriteString(" ")
		b.WriteString(TypeName(e.Type))
		if !e.Key.IsPlain() {
			b.WriteString("(")
			b.WriteString(e.Key.String())
			b.WriteString(")")
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opError(op string, e Entity, err error) *Error {
	return &Error{Op: op, Entity: e, Err: err}
}

func componentError(op string, e Entity, ck columnKey, err error) *Error {
	return &Error{Op: op, Entity: e, Type: ck.Type, Key: ck.Key, Err: err}
}
