package kura

import (
	"cmp"
	"encoding/binary"
	"slices"
	"strings"
)

// columnKey identifies one column of a table.
type columnKey struct {
	Type TypeID
	Key  Key
}

func compareColumnKeys(a, b columnKey) int {
	if c := cmp.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Key.kind, b.Key.kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Key.value, b.Key.value)
}

func (c columnKey) String() string {
	if c.Key.IsPlain() {
		return TypeName(c.Type)
	}
	return TypeName(c.Type) + "(" + c.Key.String() + ")"
}

// TypeExpr is a read-side (type, match) pair. It selects the columns whose
// type satisfies Type and whose key is selected by Match.
type TypeExpr struct {
	Type  TypeID
	Match Match
}

// Expr returns the TypeExpr selecting columns of type T under m.
func Expr[T any](m Matcher) TypeExpr {
	return TypeExpr{Type: TypeFor[T](), Match: m.match()}
}

func (t TypeExpr) matches(ck columnKey) bool {
	return t.Match.Matches(ck.Key) && typeMatches(t.Type, ck.Type)
}

func compareExprs(a, b TypeExpr) int {
	if c := cmp.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Match.kind, b.Match.kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Match.key.kind, b.Match.key.kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Match.key.value, b.Match.key.value)
}

func (t TypeExpr) String() string {
	if t.Match == Plain.match() {
		return TypeName(t.Type)
	}
	return TypeName(t.Type) + "(" + t.Match.String() + ")"
}

// Signature is the sorted, duplicate-free set of columns a table stores.
type Signature []columnKey

func newSignature(cks ...columnKey) Signature {
	s := slices.Clone(cks)
	slices.SortFunc(s, compareColumnKeys)
	return slices.Compact(s)
}

// with returns a new signature holding the members of s plus cks.
func (s Signature) with(cks ...columnKey) Signature {
	out := make([]columnKey, 0, len(s)+len(cks))
	out = append(out, s...)
	out = append(out, cks...)
	return newSignature(out...)
}

// without returns a new signature holding the members of s except cks.
func (s Signature) without(cks ...columnKey) Signature {
	out := make(Signature, 0, len(s))
	for _, ck := range s {
		if !slices.Contains(cks, ck) {
			out = append(out, ck)
		}
	}
	return out
}

// index returns the position of ck in s, or -1.
func (s Signature) index(ck columnKey) int {
	i, ok := slices.BinarySearchFunc(s, ck, compareColumnKeys)
	if !ok {
		return -1
	}
	return i
}

func (s Signature) contains(ck columnKey) bool {
	return s.index(ck) >= 0
}

// matches reports whether some member of s is selected by expr.
func (s Signature) matches(expr TypeExpr) bool {
	for _, ck := range s {
		if expr.matches(ck) {
			return true
		}
	}
	return false
}

// id returns the canonical encoding of s, used as the table arena key.
func (s Signature) id() string {
	buf := make([]byte, 0, len(s)*11)
	for _, ck := range s {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(ck.Type))
		buf = append(buf, byte(ck.Key.kind))
		buf = binary.LittleEndian.AppendUint64(buf, ck.Key.value)
	}
	return string(buf)
}

func (s Signature) String() string {
	parts := make([]string, len(s))
	for i, ck := range s {
		parts[i] = ck.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
