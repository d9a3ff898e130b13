package kura

import (
	"fmt"
	"reflect"
)

// KeyKind tells which variant a Key is.
type KeyKind uint8

const (
	// KeyPlain is the key of an ordinary component.
	KeyPlain KeyKind = iota
	// KeyRelation keys a component by a target entity.
	KeyRelation
	// KeyLink keys a component by the identity of a linked object.
	KeyLink
)

// Key is the concrete secondary key of a component. A component is stored
// under (TypeID, Key), so one entity may hold several components of the same
// type as long as their keys differ.
//
// Keys are write-side values: every mutating API takes a Key, never a Match.
type Key struct {
	value uint64
	kind  KeyKind
}

// Plain is the key of ordinary components.
var Plain Key

// Relation returns the key of a component relating its holder to target.
func Relation(target Entity) Key {
	return Key{kind: KeyRelation, value: target.Pack()}
}

// Link returns the key of a component linking its holder to obj. obj must
// be a non-nil pointer; the key is derived from the pointer identity, so two
// links to the same object share a key.
func Link(obj any) Key {
	v := reflect.ValueOf(obj)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		panic(&Error{Op: "link", Err: ErrInvalidLink})
	}
	return Key{kind: KeyLink, value: uint64(v.Pointer())}
}

// Kind returns the variant of k.
func (k Key) Kind() KeyKind {
	return k.kind
}

// IsPlain reports whether k is the Plain key.
func (k Key) IsPlain() bool {
	return k.kind == KeyPlain
}

// Target returns the entity a relation key points at.
func (k Key) Target() (Entity, bool) {
	if k.kind != KeyRelation {
		return None, false
	}
	return Unpack(k.value), true
}

func (k Key) String() string {
	switch k.kind {
	case KeyRelation:
		return "rel:" + Unpack(k.value).String()
	case KeyLink:
		return fmt.Sprintf("link:%#x", k.value)
	}
	return "plain"
}

func (k Key) match() Match {
	return Match{kind: matchExact, key: k}
}

type matchKind uint8

const (
	matchExact matchKind = iota
	matchAny
	matchRelation
	matchLink
)

// Match selects component keys on the read side. It is either an exact Key
// or one of the wildcards Any, AnyRelation and AnyLink.
type Match struct {
	key  Key
	kind matchKind
}

var (
	// Any matches every key, Plain included.
	Any = Match{kind: matchAny}
	// AnyRelation matches every relation key.
	AnyRelation = Match{kind: matchRelation}
	// AnyLink matches every link key.
	AnyLink = Match{kind: matchLink}
)

// Matcher is implemented by Key and Match. Read APIs accept a Matcher so an
// exact key can be passed where a Match is expected.
type Matcher interface {
	match() Match
}

func (m Match) match() Match {
	return m
}

// Exactly returns the Match selecting only k.
func Exactly(k Key) Match {
	return k.match()
}

// IsWildcard reports whether m can select more than one key.
func (m Match) IsWildcard() bool {
	return m.kind != matchExact
}

// Matches reports whether k is selected by m.
func (m Match) Matches(k Key) bool {
	switch m.kind {
	case matchAny:
		return true
	case matchRelation:
		return k.kind == KeyRelation
	case matchLink:
		return k.kind == KeyLink
	}
	return m.key == k
}

func (m Match) String() string {
	switch m.kind {
	case matchAny:
		return "*"
	case matchRelation:
		return "rel:*"
	case matchLink:
		return "link:*"
	}
	return m.key.String()
}
