package kura

import (
	"encoding/binary"
	"reflect"
	"slices"
	"strings"

	"go.uber.org/zap"
)

type termKind uint8

const (
	termHas termKind = iota
	termAnyOf
	termNot
)

// Term is one clause of a query filter.
type Term struct {
	expr TypeExpr
	kind termKind
}

// Has requires a component of type T whose key is selected by m.
func Has[T any](m Matcher) Term {
	return Term{expr: Expr[T](m), kind: termHas}
}

// Not excludes tables holding a component of type T whose key is selected
// by m.
func Not[T any](m Matcher) Term {
	return Term{expr: Expr[T](m), kind: termNot}
}

// AnyOf requires at least one of the AnyOf terms of a query to match.
func AnyOf[T any](m Matcher) Term {
	return Term{expr: Expr[T](m), kind: termAnyOf}
}

// HasAny requires a component of any type whose key is selected by m, such
// as HasAny(Relation(target)) for everything relating to target.
func HasAny(m Matcher) Term {
	return Term{expr: TypeExpr{Type: TypeAny, Match: m.match()}, kind: termHas}
}

// mask is the canonical form of a filter: each set sorted and de-duplicated
// so that equal filter content yields equal masks regardless of term order.
type mask struct {
	required []TypeExpr
	anyOf    []TypeExpr
	excluded []TypeExpr
	// self is the union of the self bits of the concrete required types.
	self bitset256
}

func newMask(terms []Term) mask {
	var m mask
	for _, t := range terms {
		switch t.kind {
		case termHas:
			m.required = append(m.required, t.expr)
		case termAnyOf:
			m.anyOf = append(m.anyOf, t.expr)
		case termNot:
			m.excluded = append(m.excluded, t.expr)
		}
	}
	for _, set := range []*[]TypeExpr{&m.required, &m.anyOf, &m.excluded} {
		slices.SortFunc(*set, compareExprs)
		*set = slices.Compact(*set)
	}
	for _, expr := range m.required {
		if expr.Type == TypeAny {
			continue
		}
		if info := typeInfoOf(expr.Type); info != nil && info.typ.Kind() != reflect.Interface {
			m.self = m.self.or(info.self)
		}
	}
	return m
}

func (m mask) matches(t *Table) bool {
	if !t.bloom.contains(m.self) {
		return false
	}
	for _, expr := range m.required {
		if !t.matches(expr) {
			return false
		}
	}
	if len(m.anyOf) > 0 && !slices.ContainsFunc(m.anyOf, t.matches) {
		return false
	}
	return !slices.ContainsFunc(m.excluded, t.matches)
}

func (m mask) key() string {
	var buf []byte
	for i, set := range [][]TypeExpr{m.required, m.anyOf, m.excluded} {
		buf = append(buf, byte(i), byte(len(set)))
		buf = appendExprs(buf, set)
	}
	return string(buf)
}

func appendExprs(buf []byte, exprs []TypeExpr) []byte {
	for _, e := range exprs {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(e.Type))
		buf = append(buf, byte(e.Match.kind), byte(e.Match.key.kind))
		buf = binary.LittleEndian.AppendUint64(buf, e.Match.key.value)
	}
	return buf
}

func (m mask) String() string {
	var b strings.Builder
	for i, set := range [][]TypeExpr{m.required, m.anyOf, m.excluded} {
		if len(set) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString([]string{"has", "any", "not"}[i])
		b.WriteString("[")
		for j, e := range set {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.String())
		}
		b.WriteString("]")
	}
	return b.String()
}

// Query is a compiled filter and the cached list of tables it matches. The
// cache is filled once on compilation and extended whenever the world
// creates a matching table.
type Query struct {
	world  *World
	key    string
	mask   mask
	tables []*Table
}

// Query compiles terms into a Query. The terms are reduced to a canonical
// mask first, so filters with the same content share one Query instance no
// matter the order the terms were given in. A new Query scans the existing
// tables once and then follows TableCreated events, so it never rescans.
//
// Parameters:
//   - terms: Has, Not, AnyOf and HasAny terms. No terms matches every
//     table, the root table of component-less entities included.
//
// Returns:
//   - The cached Query for the mask.
func (w *World) Query(terms ...Term) *Query {
	m := newMask(terms)
	key := m.key()

	w.mu.Lock()
	defer w.mu.Unlock()
	if q, ok := w.queries[key]; ok {
		return q
	}
	q := &Query{world: w, key: key, mask: m}
	for _, t := range w.tables {
		if m.matches(t) {
			q.tables = append(q.tables, t)
		}
	}
	Subscribe(&w.bus, q.tableCreated)
	w.queries[key] = q
	w.logger.Debug("query compiled", zap.Stringer("mask", m), zap.Int("tables", len(q.tables)))
	return q
}

func (q *Query) tableCreated(ev TableCreated) {
	if q.mask.matches(ev.Table) {
		q.tables = append(q.tables, ev.Table)
	}
}

// World returns the world q was compiled in.
func (q *Query) World() *World {
	return q.world
}

func (q *Query) String() string {
	return q.mask.String()
}

// Tables returns the matched tables.
func (q *Query) Tables() []*Table {
	q.world.mu.RLock()
	defer q.world.mu.RUnlock()
	return slices.Clone(q.tables)
}

// Count returns the number of matched entities.
func (q *Query) Count() int {
	q.world.mu.RLock()
	defer q.world.mu.RUnlock()
	return q.count()
}

func (q *Query) count() int {
	n := 0
	for _, t := range q.tables {
		n += t.Count()
	}
	return n
}

// Contains reports whether e is alive and matched by q.
func (q *Query) Contains(e Entity) bool {
	w := q.world
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.identities.alive(e) {
		return false
	}
	t := w.metas[e.ID].table
	return t != nil && q.mask.matches(t)
}

// Entities returns a snapshot of the matched entities.
func (q *Query) Entities() []Entity {
	q.world.mu.RLock()
	defer q.world.mu.RUnlock()
	return q.entities()
}

func (q *Query) entities() []Entity {
	out := make([]Entity, 0, q.count())
	for _, t := range q.tables {
		out = append(out, t.entities...)
	}
	return out
}

// Despawn despawns every matched entity.
func (q *Query) Despawn() error {
	w := q.world
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return opError("despawn", None, ErrWorldClosed)
	}
	snapshot := q.entities()
	if w.readers > 0 {
		w.deferred.enqueue(operation{typ: opDespawn, entities: snapshot})
		return nil
	}
	for _, e := range snapshot {
		if err := w.despawnLocked(e); err != nil {
			return err
		}
	}
	return nil
}

// Truncate despawns matched entities until at most n remain. Tables are
// kept in match order, rows in table order.
func (q *Query) Truncate(n int) error {
	w := q.world
	n = max(n, 0)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return opError("truncate", None, ErrWorldClosed)
	}
	if w.readers > 0 {
		var excess []Entity
		remaining := n
		for _, t := range q.tables {
			keep := min(t.Count(), remaining)
			remaining -= keep
			excess = append(excess, t.entities[keep:]...)
		}
		w.deferred.enqueue(operation{typ: opDespawn, entities: excess})
		return nil
	}
	q.truncateLocked(n)
	return nil
}

func (q *Query) truncateLocked(n int) {
	w := q.world
	type cut struct {
		t    *Table
		keep int
		next []Entity
	}
	var cuts []cut
	remaining := n
	for _, t := range q.tables {
		keep := min(t.Count(), remaining)
		remaining -= keep
		if keep == t.Count() {
			continue
		}
		c := cut{t: t, keep: keep}
		for _, e := range t.entities[keep:] {
			c.next = append(c.next, e.successor())
		}
		cuts = append(cuts, c)
	}
	var dropped []Entity
	for _, c := range cuts {
		c.t.truncate(c.keep)
		for _, next := range c.next {
			w.metas[next.ID] = entityMeta{}
			w.identities.recycle(next)
			dropped = append(dropped, Entity{ID: next.ID, World: next.World, Generation: next.Generation - 1})
		}
	}
	for _, e := range dropped {
		w.unrelate(e)
	}
}
