package kura

import (
	"iter"
	"slices"
	"sync/atomic"
)

// Table stores every entity of one exact signature. Each signature member
// owns a dense column and all columns, along with the entity column, are
// exactly Count() long.
//
// Rows are compacted by swap-remove, so row order is not stable across
// removals.
type Table struct {
	world     *World
	signature Signature
	columns   []storage // parallel to signature
	entities  []Entity
	bloom     bitset256 // union of the self bits of the column types
	version   atomic.Uint64
	index     int
}

func newTable(w *World, index int, sig Signature, capacity int) *Table {
	t := &Table{
		world:     w,
		index:     index,
		signature: sig,
		columns:   make([]storage, len(sig)),
		entities:  make([]Entity, 0, capacity),
	}
	for i, ck := range sig {
		info := typeInfoOf(ck.Type)
		t.columns[i] = info.newColumn(ck.Key)
		t.bloom = t.bloom.or(info.self)
	}
	return t
}

// Signature returns a copy of the columns the table stores.
func (t *Table) Signature() Signature {
	return slices.Clone(t.signature)
}

// Count returns the number of rows.
func (t *Table) Count() int {
	return len(t.entities)
}

// Version returns a counter that increases on every row add, row removal
// and column mutation.
func (t *Table) Version() uint64 {
	return t.version.Load()
}

// Entities returns the entity column. The slice is owned by the table and
// is only valid until the next structural change.
func (t *Table) Entities() []Entity {
	return t.entities
}

func (t *Table) String() string {
	return t.signature.String()
}

func (t *Table) bump() {
	t.version.Add(1)
}

// matches reports whether some column is selected by expr.
func (t *Table) matches(expr TypeExpr) bool {
	return t.signature.matches(expr)
}

func (t *Table) column(ck columnKey) storage {
	if i := t.signature.index(ck); i >= 0 {
		return t.columns[i]
	}
	return nil
}

func (t *Table) checkRow(row int) {
	if row < 0 || row >= len(t.entities) {
		panic(&Error{Op: "table " + t.String(), Err: ErrOutOfBounds})
	}
}

// appendRows adds one row per entity, writes comps into every new row and
// returns the first new row.
func (t *Table) appendRows(es []Entity, comps []Component) int {
	first := len(t.entities)
	t.entities = append(t.entities, es...)
	for _, col := range t.columns {
		col.grow(len(es))
	}
	for _, c := range comps {
		col := t.column(c.ck)
		for row := first; row < len(t.entities); row++ {
			c.write(col, row)
		}
	}
	t.bump()
	return first
}

// removeRow swap-removes row. When another entity was moved into row, it
// is returned with ok set.
func (t *Table) removeRow(row int) (moved Entity, ok bool) {
	t.checkRow(row)
	last := len(t.entities) - 1
	for _, col := range t.columns {
		col.swapRemove(row)
	}
	if row != last {
		t.entities[row] = t.entities[last]
		moved, ok = t.entities[row], true
	}
	t.entities[last] = None
	t.entities = t.entities[:last]
	t.bump()
	return moved, ok
}

// migrate moves row into dst. Columns shared by both signatures keep their
// values; columns only dst has are zeroed. It returns the new row and the
// entity swapped into row of t, if any.
func (t *Table) migrate(row int, dst *Table) (newRow int, moved Entity, ok bool) {
	t.checkRow(row)
	newRow = len(dst.entities)
	dst.entities = append(dst.entities, t.entities[row])
	for i, ck := range dst.signature {
		if j := t.signature.index(ck); j >= 0 {
			dst.columns[i].appendFrom(t.columns[j], row)
		} else {
			dst.columns[i].grow(1)
		}
	}
	dst.bump()
	moved, ok = t.removeRow(row)
	return newRow, moved, ok
}

// migrateAll moves every row into dst and returns the first new row.
func (t *Table) migrateAll(dst *Table) int {
	first := len(dst.entities)
	n := len(t.entities)
	dst.entities = append(dst.entities, t.entities...)
	for i, ck := range dst.signature {
		if j := t.signature.index(ck); j >= 0 {
			dst.columns[i].appendAll(t.columns[j])
		} else {
			dst.columns[i].grow(n)
		}
	}
	dst.bump()
	t.truncate(0)
	return first
}

// truncate drops every row from n on and returns the dropped entities.
func (t *Table) truncate(n int) []Entity {
	if n >= len(t.entities) {
		return nil
	}
	n = max(n, 0)
	dropped := slices.Clone(t.entities[n:])
	for _, col := range t.columns {
		col.truncate(n)
	}
	clear(t.entities[n:])
	t.entities = t.entities[:n]
	t.bump()
	return dropped
}

// fillColumn overwrites every row of the column at index i with v.
func fillColumn[T any](t *Table, i int, v T) {
	t.columns[i].(*column[T]).fill(v)
	t.bump()
}

// crossJoin yields every combination of columns satisfying shape, one
// column per expression, in odometer order with the last expression varying
// fastest. Shape types are matched exactly. The yielded slice is reused
// between steps.
func (t *Table) crossJoin(shape []TypeExpr) iter.Seq[[]storage] {
	return func(yield func([]storage) bool) {
		candidates := make([][]storage, len(shape))
		for i, expr := range shape {
			for j, ck := range t.signature {
				if ck.Type == expr.Type && expr.Match.Matches(ck.Key) {
					candidates[i] = append(candidates[i], t.columns[j])
				}
			}
			if len(candidates[i]) == 0 {
				return
			}
		}

		odometer := make([]int, len(shape))
		combo := make([]storage, len(shape))
		for {
			for i := range shape {
				combo[i] = candidates[i][odometer[i]]
			}
			if !yield(combo) {
				return
			}
			i := len(shape) - 1
			for ; i >= 0; i-- {
				odometer[i]++
				if odometer[i] < len(candidates[i]) {
					break
				}
				odometer[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}
